package lmi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"ccmkit/internal/jacobian"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

// Request is the linearization payload sent to the external solver.
type Request struct {
	StateValues    map[string]float64 `json:"state_values"`
	MatrixA        [][]float64        `json:"matrix_a"`
	MatrixB        [][]float64        `json:"matrix_b"`
	MatrixQ        []float64          `json:"matrix_q"`
	AlphaMin       float64            `json:"alpha_min"`
	AlphaMax       float64            `json:"alpha_max"`
	LambdaVal      float64            `json:"lambda_val"`
	N              int                `json:"n"`
	UseDConstraint bool               `json:"use_d_constraint"`
}

// BuildRequest linearizes the system at its equilibrium reference:
// A = J(x_ref), B = B(x_ref). Entry evaluation failures default to 0.
func BuildRequest(cfg *system.Config, jac *jacobian.Matrix, eng *symexpr.Engine) (*Request, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.N()
	ref := cfg.EquilibriumState()
	bindings := make(map[string]float64, n)
	for i, name := range cfg.BindingNames() {
		bindings[name] = ref[i]
	}

	a, defaults := jac.Eval(eng, bindings)
	if defaults > 0 {
		slog.Warn("jacobian evaluation degraded at reference point", "defaults", defaults)
	}

	b := make([][]float64, n)
	for i, row := range cfg.B {
		b[i] = make([]float64, cfg.M())
		for j, src := range row {
			v, err := eng.Evaluate(src, bindings)
			if err != nil {
				slog.Warn("input matrix entry defaulted to 0 at reference point",
					"row", i, "col", j, "err", err)
				continue
			}
			b[i][j] = v
		}
	}

	return &Request{
		StateValues:    bindings,
		MatrixA:        a,
		MatrixB:        b,
		MatrixQ:        append([]float64(nil), cfg.Q...),
		AlphaMin:       cfg.LMI.AlphaMin,
		AlphaMax:       cfg.LMI.AlphaMax,
		LambdaVal:      cfg.LMI.Lambda,
		N:              n,
		UseDConstraint: cfg.LMI.UseDConstraint,
	}, nil
}

// Client talks to the external LMI feasibility solver. One request, one
// response, no retries; the caller bounds the exchange with its context.
type Client struct {
	base  string
	httpc *http.Client
	log   *slog.Logger
}

func NewClient(base string) *Client {
	return &Client{base: base, httpc: &http.Client{}, log: slog.Default()}
}

// Solve posts the request and returns the certificate. Every failure mode —
// connection, timeout, non-200 status, malformed body — collapses to an
// infeasible certificate with empty diagnostics; transport problems are never
// a distinct outcome from infeasibility.
func (c *Client) Solve(ctx context.Context, req *Request) *Certificate {
	body, err := json.Marshal(req)
	if err != nil {
		c.log.Warn("lmi request marshal failed", "err", err)
		return Infeasible()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/solve-lmi", bytes.NewReader(body))
	if err != nil {
		c.log.Warn("lmi request build failed", "err", err)
		return Infeasible()
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		c.log.Warn("lmi solver unavailable", "err", err)
		return Infeasible()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("lmi solver rejected request", "status", resp.StatusCode)
		return Infeasible()
	}

	cert := &Certificate{}
	if err := json.NewDecoder(resp.Body).Decode(cert); err != nil {
		c.log.Warn("lmi response malformed", "err", err)
		return Infeasible()
	}
	if cert.Feasible && !cert.Usable(req.N) {
		c.log.Warn("lmi response inconsistent",
			"err", fmt.Sprintf("feasible but W is not %d×%d", req.N, req.N))
		return Infeasible()
	}
	return cert
}
