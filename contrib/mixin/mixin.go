// Package mixin provides common persistent mixins.
//
// These mixins are OPTIONAL and provided as convenient starting points.
// Users are encouraged to create their own mixins tailored to their needs.
//
// Available mixins:
//   - CreateTime: Adds the CreatedAt property
//   - UpdateTime: Adds the UpdatedAt property
//   - Time: Combines CreateTime and UpdateTime
//   - SoftDelete: Adds the nullable DeletedAt property
//   - TenantID: Adds the TenantID property for multi-tenancy
//   - TimeSoftDelete: Combines Time and SoftDelete
//
// Usage:
//
//	type User struct {
//	    _ struct{} `mapping:"class"`
//	    mixin.Time `mapping:",mixin"`
//	    Name string
//	}
//
//	src := mixin.Register(load.NewReflectSource()).Class(User{})
//
// A class may embed several mixins as long as their properties do not
// overlap, so Time and CreateTime cannot be combined.
package mixin

import (
	"time"

	"github.com/google/uuid"

	"github.com/syssam/relmap/compiler/load"
)

// CreateTime adds the creation time.
//
// Mapped column:
//
//	created_at TIMESTAMP NOT NULL
type CreateTime struct {
	_         struct{} `mapping:"mixin"`
	CreatedAt time.Time
}

// UpdateTime adds the time of the last update.
//
// Mapped column:
//
//	updated_at TIMESTAMP NOT NULL
type UpdateTime struct {
	_         struct{} `mapping:"mixin"`
	UpdatedAt time.Time
}

// Time adds both the creation and the last update time.
//
// This is the most common mixin for tracking entity timestamps.
type Time struct {
	_         struct{} `mapping:"mixin"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SoftDelete adds the deletion time of soft-deleted objects.
//
// Mapped column:
//
//	deleted_at TIMESTAMP NULL
type SoftDelete struct {
	_         struct{} `mapping:"mixin"`
	DeletedAt *time.Time
}

// TenantID adds the owning tenant.
//
// Mapped column:
//
//	tenant_id UUID NOT NULL
type TenantID struct {
	_        struct{} `mapping:"mixin"`
	TenantID uuid.UUID
}

// TimeSoftDelete composes Time and SoftDelete.
type TimeSoftDelete struct {
	_         struct{} `mapping:"mixin"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// All returns a value of every mixin of the package.
func All() []any {
	return []any{
		CreateTime{},
		UpdateTime{},
		Time{},
		SoftDelete{},
		TenantID{},
		TimeSoftDelete{},
	}
}

// Register adds every mixin of the package to s.
func Register(s *load.ReflectSource) *load.ReflectSource {
	return s.Mixin(All()...)
}
