// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type deviceRequest struct {
	DeviceID string `validate:"required,deviceid"`
	Command  string `validate:"omitempty,devicecommand"`
	Limit    int    `validate:"min=1,max=1000"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     deviceRequest
		wantField string
		wantTag   string
	}{
		{"valid", deviceRequest{DeviceID: "basky-01", Command: "ping", Limit: 10}, "", ""},
		{"mac style id", deviceRequest{DeviceID: "AA:BB:CC:DD:EE:FF", Limit: 1}, "", ""},
		{"missing id", deviceRequest{Limit: 10}, "DeviceID", "required"},
		{"id with space", deviceRequest{DeviceID: "basky arm", Limit: 10}, "", ""},
		{"non-ascii id", deviceRequest{DeviceID: "ذراع-1", Limit: 10}, "", ""},
		{"id at length limit", deviceRequest{DeviceID: strings.Repeat("é", 128), Limit: 10}, "", ""},
		{"id too long", deviceRequest{DeviceID: strings.Repeat("a", 129), Limit: 10}, "DeviceID", "deviceid"},
		{"id with control char", deviceRequest{DeviceID: "d1\n", Limit: 10}, "DeviceID", "deviceid"},
		{"id not utf-8", deviceRequest{DeviceID: "d\xff1", Limit: 10}, "DeviceID", "deviceid"},
		{"reply-only command", deviceRequest{DeviceID: "d1", Command: "session_confirmed", Limit: 10}, "Command", "devicecommand"},
		{"limit zero", deviceRequest{DeviceID: "d1", Limit: 0}, "Limit", "min"},
		{"limit too large", deviceRequest{DeviceID: "d1", Limit: 1001}, "Limit", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		err := ValidateStruct(&deviceRequest{Limit: 5})
		apiErr := err.ToAPIError()
		if apiErr.Code != "VALIDATION_FAILED" {
			t.Errorf("code = %q", apiErr.Code)
		}
		if apiErr.Message != "DeviceID is required" {
			t.Errorf("message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "DeviceID" {
			t.Errorf("details = %v", apiErr.Details)
		}
	})

	t.Run("multiple fields", func(t *testing.T) {
		err := ValidateStruct(&deviceRequest{Limit: 0})
		apiErr := err.ToAPIError()
		if !strings.Contains(apiErr.Message, "DeviceID: DeviceID is required") ||
			!strings.Contains(apiErr.Message, "Limit: Limit must be at least 1") {
			t.Errorf("message = %q", apiErr.Message)
		}
		fields, ok := apiErr.Details["fields"].([]map[string]any)
		if !ok || len(fields) != 2 {
			t.Errorf("details = %v", apiErr.Details)
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("message = %q", apiErr.Message)
		}
	})
}

func TestTranslateStringLength(t *testing.T) {
	type named struct {
		Name string `validate:"min=3,max=5"`
	}

	if err := ValidateStruct(&named{Name: "ab"}); err == nil || err.Error() != "Name must be at least 3 characters" {
		t.Errorf("short = %v", err)
	}
	if err := ValidateStruct(&named{Name: "abcdef"}); err == nil || err.Error() != "Name must be at most 5 characters" {
		t.Errorf("long = %v", err)
	}
}
