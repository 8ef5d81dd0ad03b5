package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/trototvn/sync-service/validate"
)

var _ = Describe("Embedder Client", func() {
	Context("New", func() {
		It("requires a base URL", func() {
			_, err := New(&Args{Dimension: 128})
			Expect(err).To(HaveOccurred())
			Expect(errors.Cause(err)).To(Equal(validate.ErrMissingBaseURL))
		})

		It("requires a positive dimension", func() {
			_, err := New(&Args{BaseURL: "http://localhost:8100"})
			Expect(err).To(HaveOccurred())
			Expect(errors.Cause(err)).To(Equal(validate.ErrInvalidDimension))
		})

		It("validates nil args", func() {
			_, err := New(nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Cause(err)).To(Equal(validate.ErrMissingArgs))
		})
	})

	Context("Embed", func() {
		var received embedRequest

		newServer := func(handler http.HandlerFunc) (*httptest.Server, *Client) {
			server := httptest.NewServer(handler)

			client, err := New(&Args{
				BaseURL:   server.URL,
				Dimension: 4,
			})
			Expect(err).ToNot(HaveOccurred())

			return server, client
		}

		It("posts the text and returns the vector", func() {
			server, client := newServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/embed"))
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

				json.NewEncoder(w).Encode(&embedResponse{
					Embedding: []float32{0.5, 0.5, 0.5, 0.5},
				})
			})
			defer server.Close()

			vector, err := client.Embed(context.Background(), "phòng trọ", 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(vector).To(HaveLen(4))
			Expect(received.Text).To(Equal("phòng trọ"))
			Expect(received.Dimension).To(Equal(4))
		})

		It("falls back to the configured dimension", func() {
			server, client := newServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

				json.NewEncoder(w).Encode(&embedResponse{
					Embedding: []float32{1, 0, 0, 0},
				})
			})
			defer server.Close()

			_, err := client.Embed(context.Background(), "text", 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(received.Dimension).To(Equal(4))
		})

		It("rejects a response with the wrong dimensionality", func() {
			server, client := newServer(func(w http.ResponseWriter, _ *http.Request) {
				json.NewEncoder(w).Encode(&embedResponse{
					Embedding: []float32{1, 0},
				})
			})
			defer server.Close()

			_, err := client.Embed(context.Background(), "text", 4)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("expected 4"))
		})

		It("surfaces non-200 responses", func() {
			server, client := newServer(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			})
			defer server.Close()

			_, err := client.Embed(context.Background(), "text", 4)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("model not loaded"))
		})
	})
})
