package response

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestGatewayErrorMapsKindToStatus(t *testing.T) {
	cases := []struct {
		kind       string
		wantStatus int
		wantCode   ErrorCode
	}{
		{"ValidationError", http.StatusBadRequest, CodeBadRequest},
		{"NotFound", http.StatusNotFound, CodeNotFound},
		{"Conflict", http.StatusConflict, CodeConflict},
		{"DeviceError", http.StatusBadGateway, CodeDevice},
		{"TransportError", http.StatusBadGateway, CodeTransport},
		{"CircuitOpen", http.StatusServiceUnavailable, CodeCircuit},
		{"DependencyError", http.StatusInternalServerError, CodeDependency},
		{"SomethingUnknown", http.StatusInternalServerError, CodeInternal},
	}

	app := fiber.New()
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			app.Get("/"+tc.kind, func(c fiber.Ctx) error {
				return GatewayError(c, tc.kind, "boom")
			})

			req, _ := http.NewRequest(http.MethodGet, "/"+tc.kind, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("kind %s: expected status %d, got %d", tc.kind, tc.wantStatus, resp.StatusCode)
			}
		})
	}
}
