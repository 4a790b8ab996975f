package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"certregistry/internal/certificate"
	"certregistry/internal/certificate/handler"
	"certregistry/internal/certificate/store"
	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/requestcontext"
)

type stubStandards struct{}

func (stubStandards) Prefix(_ context.Context, id int64) (string, error) {
	if id == 1 {
		return "QS", nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "standard not found")
}

func (stubStandards) CertificateName(_ context.Context, id int64) (string, error) {
	if id == 1 {
		return "ISO 9001-2015", nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "standard not found")
}

type HandlerSuite struct {
	suite.Suite
	router *chi.Mux
	today  time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.today = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := certificate.NewService(store.NewInMemory(), store.NewInMemoryAuditors(), stubStandards{}, logger)
	h := handler.New(service, logger)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), s.today)))
		})
	})
	h.RegisterAdmin(s.router)
	s.router.Get("/public/certificates/search", h.HandleSearch)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createBody(part string) map[string]any {
	return map[string]any{
		"number_part":    part,
		"standard_id":    1,
		"org_name":       "Acme LLC",
		"org_inn":        "7701234567",
		"start_date":     "2024-01-10",
		"expiry_date":    "2027-01-10",
		"validity_years": 3,
	}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("creates and returns the printed number", func() {
		rec := s.do(http.MethodPost, "/certificates", s.createBody("01001"))
		s.Require().Equal(http.StatusCreated, rec.Code)

		var resp struct {
			ID         int64  `json:"id"`
			Status     string `json:"status"`
			FullNumber string `json:"full_number"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.NotZero(resp.ID)
		s.Equal("active", resp.Status)
		s.Equal("№SMK.01001QS", resp.FullNumber)
	})

	s.Run("duplicate number yields 409", func() {
		rec := s.do(http.MethodPost, "/certificates", s.createBody("01002"))
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.do(http.MethodPost, "/certificates", s.createBody("01002"))
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("malformed date yields 400", func() {
		body := s.createBody("01003")
		body["start_date"] = "10.01.2024"
		rec := s.do(http.MethodPost, "/certificates", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("expiry before start yields 400", func() {
		body := s.createBody("01004")
		body["expiry_date"] = "2023-01-10"
		rec := s.do(http.MethodPost, "/certificates", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("invalid JSON yields 400", func() {
		req := httptest.NewRequest(http.MethodPost, "/certificates", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestGetAndSearch() {
	rec := s.do(http.MethodPost, "/certificates", s.createBody("01001"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Run("unknown ID yields 404", func() {
		rec := s.do(http.MethodGet, "/certificates/999", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("non-numeric ID yields 400", func() {
		rec := s.do(http.MethodGet, "/certificates/abc", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("public search finds the printed number", func() {
		rec := s.do(http.MethodGet, "/public/certificates/search?q=№SMK.01001QS", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			Results []struct {
				NumberPart string `json:"number_part"`
				Status     string `json:"status"`
			} `json:"results"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Results, 1)
		s.Equal("01001", resp.Results[0].NumberPart)
		s.Equal("active", resp.Results[0].Status)
	})

	s.Run("search with no match returns empty results", func() {
		rec := s.do(http.MethodGet, "/public/certificates/search?q=99999", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			Results []any `json:"results"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Empty(resp.Results)
	})
}

func (s *HandlerSuite) TestInspectionsAndRevocation() {
	rec := s.do(http.MethodPost, "/certificates", s.createBody("01001"))
	s.Require().Equal(http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))

	s.Run("marking an inspection passed stamps today", func() {
		rec := s.do(http.MethodPut, "/certificates/1/inspections", map[string]any{
			"first_inspection_status": "passed",
		})
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			FirstInspectionStatus string `json:"first_inspection_status"`
			FirstInspectionDate   string `json:"first_inspection_date"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("passed", resp.FirstInspectionStatus)
		s.Contains(resp.FirstInspectionDate, "2024-02-01")
	})

	s.Run("empty inspections body yields 400", func() {
		rec := s.do(http.MethodPut, "/certificates/1/inspections", map[string]any{})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("revoke then double revoke", func() {
		rec := s.do(http.MethodPost, "/certificates/1/revoke", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/certificates/1/revoke", nil)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("reinstate restores the derived status", func() {
		rec := s.do(http.MethodPost, "/certificates/1/reinstate", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			Status string `json:"status"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("active", resp.Status)
	})
}

func (s *HandlerSuite) TestAuditors() {
	rec := s.do(http.MethodPost, "/certificates", s.createBody("01001"))
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Run("adds an auditor with an ordinal audit number", func() {
		rec := s.do(http.MethodPost, "/certificates/1/auditors", map[string]any{
			"full_name": "Ivanova A.",
		})
		s.Require().Equal(http.StatusCreated, rec.Code)

		var resp struct {
			AuditNumber string `json:"audit_number"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("№AUD.01QS", resp.AuditNumber)
	})

	s.Run("blank name yields 400", func() {
		rec := s.do(http.MethodPost, "/certificates/1/auditors", map[string]any{
			"full_name": "   ",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestNextNumber() {
	rec := s.do(http.MethodGet, "/certificates/next-number", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		NumberPart string `json:"number_part"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("01001", resp.NumberPart)
}

func (s *HandlerSuite) TestRefreshAll() {
	body := s.createBody("01001")
	body["start_date"] = "2020-01-10"
	body["expiry_date"] = "2023-01-10"
	rec := s.do(http.MethodPost, "/certificates", body)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/certificates/refresh-statuses", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Checked int `json:"checked"`
		Updated int `json:"updated"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.Checked)
	s.Equal(1, resp.Updated)
}
