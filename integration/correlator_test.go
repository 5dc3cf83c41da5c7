package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladvaleanu/nxforge-correlator/internal/api"
	membuf "github.com/vladvaleanu/nxforge-correlator/internal/buffer/memory"
	"github.com/vladvaleanu/nxforge-correlator/internal/config"
	"github.com/vladvaleanu/nxforge-correlator/internal/correlator"
	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	memoryqueue "github.com/vladvaleanu/nxforge-correlator/internal/queue/memory"
	memorystor "github.com/vladvaleanu/nxforge-correlator/internal/store/memory"
)

// envelope mirrors the API response wrapper for decoding in assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Correlator", func() {
	var (
		server  *api.Server
		service *correlator.Service
		events  *memoryqueue.Queue
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		buf := membuf.NewBuffer()
		alerts := memorystor.NewAlertRepository()
		incidents := memorystor.NewIncidentRepository(alerts)
		events = memoryqueue.NewQueue(100)

		service = correlator.NewService(
			correlator.Config{
				BatchWindow:  time.Minute,
				GroupTimeout: 5 * time.Second,
			},
			buf,
			alerts,
			incidents,
			correlator.NewSourceMatcher(incidents),
			events,
			logger,
		)

		cfg := config.Default()
		server = api.NewServer(api.ServerDeps{
			Config:          &cfg.Server,
			Logger:          logger,
			AlertHandler:    api.NewAlertHandler(service, logger),
			IncidentHandler: api.NewIncidentHandler(service, logger),
		})
	})

	doJSON := func(method, path string, body interface{}) (*http.Response, *envelope) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}

		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := server.App().Test(req, 5000)
		Expect(err).NotTo(HaveOccurred())

		env := &envelope{}
		Expect(json.NewDecoder(resp.Body).Decode(env)).To(Succeed())
		return resp, env
	}

	ingest := func(source, message string, severity domain.Severity, labels map[string]string) {
		resp, env := doJSON(http.MethodPost, "/v1/alerts", correlator.IngestInput{
			Source:   source,
			Message:  message,
			Severity: severity,
			Labels:   labels,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(env.Success).To(BeTrue())
	}

	flush := func() {
		resp, _ := doJSON(http.MethodPost, "/v1/batches", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
	}

	Describe("health check", func() {
		It("reports healthy", func() {
			resp, env := doJSON(http.MethodGet, "/healthz", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(env.Success).To(BeTrue())
		})
	})

	Describe("alert ingestion", func() {
		It("rejects an alert without a source", func() {
			resp, env := doJSON(http.MethodPost, "/v1/alerts", correlator.IngestInput{Message: "orphan"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(env.Success).To(BeFalse())
			Expect(env.Error.Code).To(Equal("VALIDATION_FAILED"))
		})

		It("returns the stored alert with defaults applied", func() {
			resp, env := doJSON(http.MethodPost, "/v1/alerts", correlator.IngestInput{
				Source:  "power-meter",
				Message: "voltage spike",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var alert domain.RawAlert
			Expect(json.Unmarshal(env.Data, &alert)).To(Succeed())
			Expect(alert.ID).NotTo(BeEmpty())
			Expect(alert.Severity).To(Equal(domain.SeverityInfo))
			Expect(alert.IncidentID).To(BeNil())
		})
	})

	Describe("correlation", func() {
		It("groups a batch into a single incident", func() {
			labels := map[string]string{"zone": "A"}
			ingest("power-meter", "voltage low", domain.SeverityWarning, labels)
			ingest("power-meter", "voltage lower", domain.SeverityWarning, labels)
			ingest("power-meter", "voltage critical", domain.SeverityCritical, labels)
			flush()

			resp, env := doJSON(http.MethodGet, "/v1/incidents/active?include_alerts=true", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var incidents []domain.Incident
			Expect(json.Unmarshal(env.Data, &incidents)).To(Succeed())
			Expect(incidents).To(HaveLen(1))

			incident := incidents[0]
			Expect(incident.Title).To(Equal("3 Power Meter Alerts"))
			Expect(incident.Impact).To(Equal("Affects Zone A"))
			Expect(incident.Severity).To(Equal(domain.SeverityCritical))
			Expect(incident.Status).To(Equal(domain.StatusActive))
			Expect(incident.AlertCount).To(Equal(3))
			Expect(incident.Alerts).To(HaveLen(3))
		})

		It("splits alerts with different labels into separate incidents", func() {
			ingest("power-meter", "zone A spike", domain.SeverityWarning, map[string]string{"zone": "A"})
			ingest("power-meter", "zone B spike", domain.SeverityWarning, map[string]string{"zone": "B"})
			flush()

			_, env := doJSON(http.MethodGet, "/v1/incidents", nil)

			var incidents []domain.Incident
			Expect(json.Unmarshal(env.Data, &incidents)).To(Succeed())
			Expect(incidents).To(HaveLen(2))
		})

		It("publishes a lifecycle event for each created incident", func() {
			ingest("power-meter", "voltage spike", domain.SeverityWarning, nil)
			flush()

			Expect(events.Len()).To(Equal(1))
		})
	})

	Describe("incident lifecycle", func() {
		var incidentID string

		BeforeEach(func() {
			ingest("power-meter", "voltage spike", domain.SeverityWarning, nil)
			flush()

			_, env := doJSON(http.MethodGet, "/v1/incidents", nil)
			var incidents []domain.Incident
			Expect(json.Unmarshal(env.Data, &incidents)).To(Succeed())
			Expect(incidents).To(HaveLen(1))
			incidentID = incidents[0].ID
		})

		It("retrieves an incident with its alerts", func() {
			resp, env := doJSON(http.MethodGet, "/v1/incidents/"+incidentID, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var incident domain.Incident
			Expect(json.Unmarshal(env.Data, &incident)).To(Succeed())
			Expect(incident.ID).To(Equal(incidentID))
			Expect(incident.Alerts).To(HaveLen(1))
		})

		It("returns 404 for an unknown incident", func() {
			resp, env := doJSON(http.MethodGet, "/v1/incidents/does-not-exist", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(env.Error.Code).To(Equal("NOT_FOUND"))
		})

		It("resolves and reopens an incident", func() {
			resp, env := doJSON(http.MethodPatch, "/v1/incidents/"+incidentID+"/status",
				map[string]interface{}{"status": "resolved"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var incident domain.Incident
			Expect(json.Unmarshal(env.Data, &incident)).To(Succeed())
			Expect(incident.Status).To(Equal(domain.StatusResolved))
			Expect(incident.ResolvedAt).NotTo(BeNil())

			// A resolved incident leaves the active list.
			_, env = doJSON(http.MethodGet, "/v1/incidents/active", nil)
			var active []domain.Incident
			Expect(json.Unmarshal(env.Data, &active)).To(Succeed())
			Expect(active).To(BeEmpty())

			// Reopening clears the resolution timestamp.
			_, env = doJSON(http.MethodPatch, "/v1/incidents/"+incidentID+"/status",
				map[string]interface{}{"status": "active"})
			Expect(json.Unmarshal(env.Data, &incident)).To(Succeed())
			Expect(incident.ResolvedAt).To(BeNil())
		})

		It("rejects an unknown status", func() {
			resp, env := doJSON(http.MethodPatch, "/v1/incidents/"+incidentID+"/status",
				map[string]interface{}{"status": "closed"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(env.Error.Code).To(Equal("VALIDATION_FAILED"))
		})

		It("records the forge analysis flag", func() {
			_, env := doJSON(http.MethodPatch, "/v1/incidents/"+incidentID+"/status",
				map[string]interface{}{"status": "investigating", "has_forge_analysis": true})

			var incident domain.Incident
			Expect(json.Unmarshal(env.Data, &incident)).To(Succeed())
			Expect(incident.HasForgeAnalysis).To(BeTrue())
		})
	})
})
