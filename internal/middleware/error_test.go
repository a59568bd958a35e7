package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap/zaptest"
)

var standardErrorCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all error responses share one envelope", prop.ForAll(
		func(message string, codeIndex int) bool {
			statusCode := standardErrorCodes[codeIndex]

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode || w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			if response.Success || response.Error != message || response.Code != http.StatusText(statusCode) {
				return false
			}

			_, err := time.Parse(time.RFC3339, response.Timestamp)
			return err == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.IntRange(0, len(standardErrorCodes)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ErrorDetailsAreIncluded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error responses with details include them", prop.ForAll(
		func(detailKey string, detailValue string) bool {
			w := httptest.NewRecorder()
			RespondWithErrorDetails(w, http.StatusConflict, "conflict", map[string]interface{}{
				detailKey: detailValue,
			})

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			val, ok := response.Details[detailKey]
			return ok && val == detailValue
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusNotFound, "product not found")

	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if _, ok := raw["details"]; ok {
		t.Error("details should be omitted when empty")
	}
	if raw["success"] != false {
		t.Errorf("Expected success=false, got %v", raw["success"])
	}
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "items[2].price", Message: "price must be greater than 0"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	var response struct {
		Error   string `json:"error"`
		Details struct {
			ValidationErrors []ValidationError `json:"validation_errors"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if len(response.Details.ValidationErrors) != 1 || response.Details.ValidationErrors[0].Field != "items[2].price" {
		t.Errorf("Unexpected validation errors: %+v", response.Details.ValidationErrors)
	}
}

func TestRespondWithData_WrapsPayload(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithData(w, http.StatusCreated, map[string]int{"id": 7})

	var response struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Count   *int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if w.Code != http.StatusCreated || !response.Success || response.Data["id"] != 7 {
		t.Errorf("Unexpected response %d %+v", w.Code, response)
	}
	if response.Count != nil {
		t.Error("count should only be present on lists")
	}
}

func TestProperty_ListResponsesCarryCount(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("count matches the number of entries", prop.ForAll(
		func(items []string) bool {
			w := httptest.NewRecorder()
			RespondWithList(w, http.StatusOK, items, len(items))

			var response struct {
				Success bool     `json:"success"`
				Data    []string `json:"data"`
				Count   int      `json:"count"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}
			return response.Success && response.Count == len(items) && len(response.Data) == len(items)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/orders", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if response.Error != "internal server error" {
		t.Errorf("Panic details must not leak, got %q", response.Error)
	}
}
