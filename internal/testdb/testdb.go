// Package testdb opens an in-memory database with the full schema for package tests.
package testdb

import (
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	auditDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&companyDatamodel.Company{},
		&assetDatamodel.Asset{},
		&attestationDatamodel.Campaign{},
		&attestationDatamodel.Record{},
		&attestationDatamodel.PendingInvite{},
		&attestationDatamodel.NewAsset{},
		&auditDatamodel.Log{},
	}
}

// Open returns a fresh sqlite :memory: database. A single connection keeps every
// query on the same in-memory database, so code under test must only use the
// transaction handle inside a transaction.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}
