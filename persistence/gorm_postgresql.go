// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/stationhub/models"
	"github.com/wfunc/stationhub/room"
)

// GormPostgreSQL is the GORM-backed snapshot store.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormRoomSnapshot{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveRoom(snap room.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	var record models.GormRoomSnapshot
	result := p.db.Where("code = ?", snap.Code).First(&record)

	if result.Error == gorm.ErrRecordNotFound {
		record = models.GormRoomSnapshot{
			Code:             snap.Code,
			State:            snap.State,
			StationsCount:    snap.StationsCount,
			RoundDurationSec: snap.RoundDurationSec,
			Snapshot:         string(payload),
		}
		return p.db.Create(&record).Error
	} else if result.Error != nil {
		return result.Error
	}

	record.State = snap.State
	record.StationsCount = snap.StationsCount
	record.RoundDurationSec = snap.RoundDurationSec
	record.Snapshot = string(payload)
	record.UpdatedAt = time.Now()
	return p.db.Save(&record).Error
}

func (p *GormPostgreSQL) LoadRoom(code string) (room.Snapshot, error) {
	var record models.GormRoomSnapshot
	if err := p.db.Where("code = ?", code).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return room.Snapshot{}, ErrRecordNotFound
		}
		return room.Snapshot{}, err
	}

	var snap room.Snapshot
	if err := json.Unmarshal([]byte(record.Snapshot), &snap); err != nil {
		return room.Snapshot{}, err
	}
	return snap, nil
}

func (p *GormPostgreSQL) DeleteRoom(code string) error {
	return p.db.Where("code = ?", code).Delete(&models.GormRoomSnapshot{}).Error
}

func (p *GormPostgreSQL) ListCodes() ([]string, error) {
	var codes []string
	if err := p.db.Model(&models.GormRoomSnapshot{}).Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
