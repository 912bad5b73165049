package service

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/sterlingtax/cryptotax-backend/internal/database"
	"github.com/sterlingtax/cryptotax-backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// VersionInfo pairs the application version with the applied schema version.
type VersionInfo struct {
	AppVersion string `json:"appVersion"`
	DBVersion  int64  `json:"dbVersion"`
}

// CheckVersion returns the application version and the current migration
// version of the database schema.
func (s *SystemService) CheckVersion() (VersionInfo, error) {
	dbVersion, err := goose.GetDBVersion(s.db)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		AppVersion: version.Version,
		DBVersion:  dbVersion,
	}, nil
}
