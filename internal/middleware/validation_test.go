package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type testShopRequest struct {
	Address   string   `json:"address" validate:"required"`
	Email     string   `json:"contact_email" validate:"required,email"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func decodeShop(t *testing.T, body map[string]interface{}) (testShopRequest, error) {
	t.Helper()
	reqBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/shops", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	var shop testShopRequest
	err = DecodeAndValidate(req, &shop)
	return shop, err
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeAddress bool, includeEmail bool) bool {
			body := make(map[string]interface{})
			if includeAddress {
				body["address"] = "Via Monte Napoleone 8"
			}
			if includeEmail {
				body["contact_email"] = "milan@example.com"
			}

			_, err := decodeShop(t, body)

			if includeAddress && includeEmail {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONFieldNames(t *testing.T) {
	_, err := decodeShop(t, map[string]interface{}{
		"address":       "Bond Street",
		"contact_email": "not-an-email",
	})
	if err == nil {
		t.Fatal("Expected a validation error")
	}

	validationErrors := FormatValidationErrors(err)
	if len(validationErrors) != 1 {
		t.Fatalf("Expected one validation error, got %+v", validationErrors)
	}
	if validationErrors[0].Field != "contact_email" {
		t.Errorf("Expected JSON field name, got %q", validationErrors[0].Field)
	}
	if validationErrors[0].Message != "Invalid email format" {
		t.Errorf("Unexpected message %q", validationErrors[0].Message)
	}
}

func TestProperty_CoordinateRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("latitude outside [-90, 90] is rejected", prop.ForAll(
		func(latitude float64) bool {
			_, err := decodeShop(t, map[string]interface{}{
				"address":       "Rue Cambon 31",
				"contact_email": "paris@example.com",
				"latitude":      latitude,
			})

			if latitude >= -90 && latitude <= 90 {
				return err == nil
			}
			fields := FormatValidationErrors(err)
			return len(fields) == 1 && fields[0].Field == "latitude"
		},
		gen.Float64Range(-200, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecodeAndValidate_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/shops", strings.NewReader(`{"address":`))

	var shop testShopRequest
	err := DecodeAndValidate(req, &shop)

	if !errors.Is(err, ErrMalformedBody) {
		t.Errorf("Expected ErrMalformedBody, got %v", err)
	}
	if len(FormatValidationErrors(err)) != 0 {
		t.Error("A decode failure is not a field validation error")
	}
}
