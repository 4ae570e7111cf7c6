package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("CORS", func() {
	It("echoes an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()

		CORS("https://app.example.com, https://admin.example.com")(okHandler).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
		Expect(rec.Header().Get("Vary")).To(Equal("Origin"))
	})

	It("leaves unknown origins without CORS headers", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		CORS("https://app.example.com")(okHandler).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("answers preflight requests without calling the handler", func() {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/assets", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		CORS("*")(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(called).To(BeFalse())
	})
})

var _ = Describe("RequestID", func() {
	It("generates a trace id when none is sent", func() {
		rec := httptest.NewRecorder()
		RequestID(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get(TraceIDHeader)).NotTo(BeEmpty())
	})

	It("keeps the caller's trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, "trace-123")
		rec := httptest.NewRecorder()

		RequestID(okHandler).ServeHTTP(rec, req)

		Expect(rec.Header().Get(TraceIDHeader)).To(Equal("trace-123"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("returns a JSON 500 without leaking the panic value", func() {
		log, buf := bufferLogger()
		boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("db password is hunter2")
		})

		rec := httptest.NewRecorder()
		RecoveryMiddleware(log)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("hunter2"))

		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]).To(HaveKeyWithValue("message", "internal server error"))
		Expect(buf.String()).To(ContainSubstring("panic recovered"))
	})

	It("re-panics on http.ErrAbortHandler", func() {
		log, _ := bufferLogger()
		abort := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})

		Expect(func() {
			RecoveryMiddleware(log)(abort).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("ActorContext", func() {
	It("records the authenticated user as the actor", func() {
		var actor string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = internal.ActorFromContext(r.Context())
			Expect(logger.From(r.Context())).NotTo(BeNil())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 7, Email: "erin@example.com"}))

		ActorContext(next).ServeHTTP(httptest.NewRecorder(), req)

		Expect(actor).To(Equal("erin@example.com"))
	})

	It("falls back to the system actor without a user", func() {
		var actor string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = internal.ActorFromContext(r.Context())
		})

		ActorContext(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(actor).To(Equal(internal.SystemActor))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("masks credentials in logged bodies", func() {
		Expect(filterSensitiveBody([]byte(`{"email":"a@example.com","password":"s3cret","nested":{"refresh_token":"x"}}`))).
			To(And(
				ContainSubstring(`"email":"a@example.com"`),
				ContainSubstring(`"password":"[FILTERED]"`),
				ContainSubstring(`"refresh_token":"[FILTERED]"`),
				Not(ContainSubstring("s3cret")),
			))
	})

	It("drops non-JSON bodies that mention a credential", func() {
		Expect(filterSensitiveBody([]byte("password=s3cret"))).To(Equal("[FILTERED - Contains sensitive data]"))
	})

	It("does not log health probes", func() {
		log, buf := bufferLogger()
		LoggingMiddleware(log)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		Expect(buf.Len()).To(BeZero())
	})

	It("logs API traffic", func() {
		log, buf := bufferLogger()
		LoggingMiddleware(log)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))
		Expect(buf.String()).To(ContainSubstring("/api/v1/assets"))
	})
})
