// Package repository implements the data access layer for the application.
package repository

import (
	"murmur/internal/database"

	"gorm.io/gorm"
)

// readDB routes reads to the replica when one is connected.
func readDB(primary *gorm.DB) *gorm.DB {
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

// decrementClamped lowers column by n without going below zero.
func decrementClamped(column string, n int) interface{} {
	return gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", n, n)
}
