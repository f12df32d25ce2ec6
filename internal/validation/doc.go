// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use and shared; validator
// caches struct metadata, so handlers validate request structs through
// ValidateStruct rather than constructing their own.
//
// Custom tags:
//   - deviceid: 1-128 characters of letters, digits, '-', '_', '.', ':'
//   - devicecommand: a command type the control layer may send to a device
//
// Example:
//
//	type ReadingsRequest struct {
//	    DeviceID string `validate:"required,deviceid"`
//	    Limit    int    `validate:"min=1,max=10000"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    rw.ValidationError(apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
