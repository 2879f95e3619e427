package spdx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestSPDXClient_GetLicense(t *testing.T) {
	logger := zap.NewNop()
	client := NewClient(logger)
	ctx := context.Background()

	tests := []struct {
		name          string
		licenseID     string
		expectError   bool
		checkOSI      bool
		checkCategory string
	}{
		{
			name:          "MIT License",
			licenseID:     "MIT",
			expectError:   false,
			checkOSI:      true,
			checkCategory: "Permissive",
		},
		{
			name:          "Apache 2.0",
			licenseID:     "Apache-2.0",
			expectError:   false,
			checkOSI:      true,
			checkCategory: "Permissive",
		},
		{
			name:          "GPL-3.0",
			licenseID:     "GPL-3.0",
			expectError:   false,
			checkOSI:      true,
			checkCategory: "Copyleft",
		},
		{
			name:          "BSD-3-Clause",
			licenseID:     "BSD-3-Clause",
			expectError:   false,
			checkOSI:      true,
			checkCategory: "Permissive",
		},
		{
			name:          "Case insensitive lookup",
			licenseID:     "mit",
			expectError:   false,
			checkOSI:      true,
			checkCategory: "Permissive",
		},
		{
			name:        "Unknown license",
			licenseID:   "UNKNOWN-LICENSE-123",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			license, err := client.GetLicense(ctx, tt.licenseID)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for license %s, got nil", tt.licenseID)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if license == nil {
				t.Fatal("Expected license, got nil")
			}

			t.Logf("Found license: %s - %s", license.ID, license.Name)
			t.Logf("  OSI Approved: %v", license.IsOSIApproved)
			t.Logf("  Category: %s", license.Category)
			t.Logf("  Compatibility: %s", license.Compatibility)

			if tt.checkOSI && !license.IsOSIApproved {
				t.Errorf("Expected license %s to be OSI approved", tt.licenseID)
			}

			if tt.checkCategory != "" && license.Category != tt.checkCategory {
				t.Errorf("Expected category %s, got %s", tt.checkCategory, license.Category)
			}

			if license.Name == "" {
				t.Error("License name should not be empty")
			}

			if len(license.SeeAlso) == 0 {
				t.Error("License should have at least one reference URL")
			}
		})
	}
}

func TestSPDXClient_CategoryFor(t *testing.T) {
	logger := zap.NewNop()
	client := NewClient(logger)

	tests := []struct {
		name     string
		spdxID   string
		expected string
	}{
		{name: "known permissive license", spdxID: "MIT", expected: "Permissive"},
		{name: "known copyleft license", spdxID: "GPL-3.0", expected: "Copyleft"},
		{name: "case insensitive lookup", spdxID: "mit", expected: "Permissive"},
		{name: "unknown license falls back", spdxID: "UNKNOWN-LICENSE-123", expected: "Unknown"},
		{name: "empty id falls back", spdxID: "", expected: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.CategoryFor(tt.spdxID); got != tt.expected {
				t.Errorf("CategoryFor(%q) = %q, want %q", tt.spdxID, got, tt.expected)
			}
		})
	}
}

func TestSPDXClient_LicenseCompatibility(t *testing.T) {
	logger := zap.NewNop()
	client := NewClient(logger)
	ctx := context.Background()

	tests := []struct {
		name               string
		licenseID          string
		expectedCompatible string
	}{
		{
			name:               "MIT is very compatible",
			licenseID:          "MIT",
			expectedCompatible: "Very High",
		},
		{
			name:               "Apache-2.0 is highly compatible",
			licenseID:          "Apache-2.0",
			expectedCompatible: "High",
		},
		{
			name:               "GPL-3.0 has low compatibility",
			licenseID:          "GPL-3.0",
			expectedCompatible: "Low",
		},
		{
			name:               "AGPL-3.0 has very low compatibility",
			licenseID:          "AGPL-3.0",
			expectedCompatible: "Very Low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			license, err := client.GetLicense(ctx, tt.licenseID)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			t.Logf("License: %s", license.ID)
			t.Logf("  Compatibility: %s", license.Compatibility)
			t.Logf("  Category: %s", license.Category)
			t.Logf("  OSI Approved: %v", license.IsOSIApproved)

			if license.Compatibility != tt.expectedCompatible {
				t.Errorf("Expected compatibility '%s', got '%s'",
					tt.expectedCompatible, license.Compatibility)
			}
		})
	}
}
