// Package models holds the GORM mappings of the catalog and reading tables.
// Domain types never carry GORM tags; repositories convert between the two.
// The authoritative schema lives in the SQL migrations; All feeds AutoMigrate
// in tests only.
package models
