package handler_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RyotaIwahashi/phonebook/internal/handler"
)

// BenchmarkQuery is used to benchmark GraphQL queries to see if code changes have improved performance
func BenchmarkQuery(b *testing.B) {
	const query = `{ "query": "{ allPersons { name phone address { street city } id } }" }`

	benchmarks := map[string][]func(*handler.Handler){
		"Concurrent": nil,
		"Sequential": {handler.NoConcurrency(true)},
	}
	for name, options := range benchmarks {
		b.Run(name, func(b *testing.B) {
			h, _ := newHandler(options...)
			body := strings.NewReader(query)
			request := httptest.NewRequest("POST", "/", body)
			request.Header.Add("Content-Type", "application/json")
			writer := httptest.NewRecorder()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h.ServeHTTP(writer, request)

				if !strings.Contains(writer.Body.String(), `"data":{"allPersons":[`) {
					b.Error("GraphQL query failed:\n", writer.Result().StatusCode, writer.Body.String())
				}
				body.Reset(query)
				writer.Body.Reset()
			}
		})
	}
}
