// Integration tests exercising the full service graph end to end: config,
// oracle client, intelligence pipeline, application services and HTTP
// router, against a stubbed inference service.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsignal/clinsignal/internal/application/notes"
	"github.com/clinsignal/clinsignal/internal/application/search"
	"github.com/clinsignal/clinsignal/internal/config"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/interfaces/cli"
	httpserver "github.com/clinsignal/clinsignal/internal/interfaces/http"
	"github.com/clinsignal/clinsignal/internal/interfaces/http/handlers"
	"github.com/clinsignal/clinsignal/internal/interfaces/http/middleware"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// keywordAxes maps each embedding dimension to a keyword, with a final
// constant bias dimension so no text embeds to the zero vector.
var keywordAxes = []string{"diabet", "heart", "asthma", "sepsis", "stroke"}

func embedText(text string) []float64 {
	lower := strings.ToLower(text)
	vec := make([]float64, len(keywordAxes)+1)
	for i, kw := range keywordAxes {
		vec[i] = float64(strings.Count(lower, kw))
	}
	vec[len(keywordAxes)] = 1
	return vec
}

// newStubOracle serves the inference wire protocol with deterministic
// outputs: keyword-count embeddings, a fixed metformin span, and a risk
// score proportional to input length.
func newStubOracle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vecs := make([][]float64, len(req.Texts))
		for i, text := range req.Texts {
			vecs[i] = embedText(text)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": vecs})
	})

	mux.HandleFunc("/tag", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var spans []clinical.EntitySpan
		if idx := strings.Index(req.Text, "metformin"); idx >= 0 {
			spans = append(spans, clinical.EntitySpan{
				Text:       "metformin",
				Label:      clinical.LabelMedication,
				Start:      idx,
				End:        idx + len("metformin"),
				Confidence: 0.95,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"entities": spans})
	})

	mux.HandleFunc("/score", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		risk := float64(len(req.Text)%100) / 100.0
		json.NewEncoder(w).Encode(map[string]interface{}{
			"readmission_risk": risk,
			"risk_category":    "",
			"confidence":       risk,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, oracleURL string) *config.Config {
	t.Helper()
	t.Setenv("CLINSIGNAL_ORACLE_BASE_URL", oracleURL)
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, oracleURL, cfg.Oracle.BaseURL)
	return cfg
}

func newTestServices(t *testing.T) *cli.Services {
	t.Helper()
	oracle := newStubOracle(t)
	cfg := newTestConfig(t, oracle.URL)

	svcs, err := cli.BuildServices(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return svcs
}

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	svcs := newTestServices(t)
	logger := logging.NewNopLogger()

	return httpserver.NewRouter(httpserver.RouterConfig{
		NoteHandler:       handlers.NewNoteHandler(svcs.Notes, logger),
		SearchHandler:     handlers.NewSearchHandler(svcs.Search, logger),
		RiskHandler:       handlers.NewRiskHandler(svcs.Risk, logger),
		CohortHandler:     handlers.NewCohortHandler(svcs.Cohort, logger),
		HealthHandler:     handlers.NewHealthHandler("test"),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger, middleware.DefaultLoggingConfig()),
		MetricsRegistry:   svcs.Registry,
	})
}

func postAPI(t *testing.T, api http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	w := httptest.NewRecorder()
	api.ServeHTTP(w, req)
	return w
}

func TestPipelineProcessNote(t *testing.T) {
	api := newTestAPI(t)

	note := "CC: chest pain\nHPI: Pt started metformin 500mg last week.\nAssessment: monitor glucose"
	w := postAPI(t, api, "/api/v1/notes/process", map[string]string{"text": note})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result notes.ProcessResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.NotEmpty(t, result.NoteID)
	assert.Equal(t, "chest pain", result.Sections[clinical.SectionChiefComplaint])
	assert.Contains(t, result.Sections[clinical.SectionAssessmentPlan], "glucose")
	assert.Contains(t, result.Normalized, "patient started metformin 500 mg")

	var labels []clinical.EntityLabel
	for _, s := range result.Entities {
		labels = append(labels, s.Label)
	}
	assert.Contains(t, labels, clinical.LabelMedication)
}

func TestPipelineSearchCases(t *testing.T) {
	api := newTestAPI(t)

	minScore := 0.5
	w := postAPI(t, api, "/api/v1/search/cases", search.SearchInput{
		Query:     "Patient with diabetes mellitus type 2, hypertension, and chronic kidney disease",
		Limit:     3,
		Threshold: &minScore,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result search.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	require.NotEmpty(t, result.Results)
	assert.Equal(t, "case_0", result.Results[0].CaseID)
	assert.InDelta(t, 1.0, result.Results[0].Score, 1e-9)
	assert.LessOrEqual(t, len(result.Results), 3)
	for _, m := range result.Results {
		assert.GreaterOrEqual(t, m.Score, 0.5)
	}
}

func TestPipelineTrajectory(t *testing.T) {
	api := newTestAPI(t)

	now := time.Now().UTC()
	w := postAPI(t, api, "/api/v1/predict/trajectory", map[string]interface{}{
		"notes":      []string{"short note", "a considerably longer note describing deterioration"},
		"timestamps": []time.Time{now.Add(-24 * time.Hour), now},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var traj clinical.Trajectory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &traj))

	require.Len(t, traj.Points, 2)
	assert.Equal(t, 0, traj.Points[0].Index)
	require.NotNil(t, traj.Points[0].Timestamp)
	assert.GreaterOrEqual(t, traj.Max, traj.Min)
}

func TestPipelineOracleDownDegradesExtraction(t *testing.T) {
	// Oracle is closed immediately: entity extraction must fall back to
	// rules, while search must fail with 503.
	oracle := newStubOracle(t)
	oracle.Close()
	cfg := newTestConfig(t, oracle.URL)

	svcs, err := cli.BuildServices(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)

	spans, err := svcs.Notes.ExtractEntities(context.Background(), "patient on metformin 500 mg daily")
	require.NoError(t, err)
	var texts []string
	for _, s := range spans {
		texts = append(texts, s.Text)
	}
	assert.Contains(t, texts, "metformin")

	_, err = svcs.Search.SearchCases(context.Background(), &search.SearchInput{Query: "diabetes"})
	require.Error(t, err)
}

func TestPipelineHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	api.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	api.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
