package viewer

import (
	"encoding/json"
	"log"
	"net/http"
)

type HealthCheckHandler func() error

type HealthChecks struct {
	Status bool
	Name   string
	Error  string `json:",omitempty"`
}

type HealthCheckHttpResponse struct {
	Checks     []HealthChecks
	StatusCode int
}

type healthCheck struct {
	name string
	fn   HealthCheckHandler
}

// Register adds a named check to /health. Register before Run.
func (s *Service) Register(name string, fn HealthCheckHandler) {
	s.checks = append(s.checks, healthCheck{name: name, fn: fn})
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	res := HealthCheckHttpResponse{
		Checks:     make([]HealthChecks, 0, len(s.checks)),
		StatusCode: http.StatusOK,
	}

	for _, c := range s.checks {
		hc := HealthChecks{Name: c.name, Status: true}
		if err := c.fn(); err != nil {
			hc.Status = false
			hc.Error = err.Error()
			res.StatusCode = http.StatusInternalServerError
		}
		res.Checks = append(res.Checks, hc)
	}

	data, err := json.Marshal(res)
	if err != nil {
		log.Printf("health: marshal: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(data)
}
