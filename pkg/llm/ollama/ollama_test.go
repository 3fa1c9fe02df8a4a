package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gridmind/iso/pkg/llm"
	"github.com/gridmind/iso/pkg/llm/ollama"
)

var _ = Describe("Client", func() {
	newClient := func(url string) *ollama.Client {
		c, err := ollama.NewClient(ollama.Config{BaseURL: url})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("Name", func() {
		It("returns 'ollama'", func() {
			Expect(newClient("").Name()).To(Equal("ollama"))
		})
	})

	Describe("ChatStream", func() {
		It("streams NDJSON chunks and finishes with usage", func() {
			var received map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/chat"))
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

				w.Header().Set("Content-Type", "application/x-ndjson")
				w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"Hello"},"done":false}` + "\n"))
				w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":" world"},"done":false}` + "\n"))
				w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":2,"total_duration":5000}` + "\n"))
			}))
			defer server.Close()

			client := newClient(server.URL)
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model: "llama3.2",
				Messages: []llm.Message{
					llm.NewMessage(llm.RoleUser, "hi"),
				},
				System: "You are Sam.",
			})
			Expect(err).NotTo(HaveOccurred())

			completion, err := stream.Collect(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(Equal("Hello world"))
			Expect(completion.Model).To(Equal("llama3.2"))
			Expect(completion.StopReason).To(Equal("stop"))
			Expect(completion.Usage).NotTo(BeNil())
			Expect(completion.Usage.PromptTokens).To(Equal(12))
			Expect(completion.Usage.CompletionTokens).To(Equal(2))
			Expect(completion.Usage.TotalTokens).To(Equal(14))

			// The system prompt is prepended as the first message.
			messages := received["messages"].([]any)
			Expect(messages).To(HaveLen(2))
			first := messages[0].(map[string]any)
			Expect(first["role"]).To(Equal("system"))
			Expect(first["content"]).To(Equal("You are Sam."))
		})

		It("maps generation parameters into options", func() {
			var received map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				w.Write([]byte(`{"model":"llama3.2","message":{"content":"ok"},"done":true,"done_reason":"stop"}` + "\n"))
			}))
			defer server.Close()

			temp := 0.7
			topK := 40
			maxTokens := 256
			client := newClient(server.URL)
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:       "llama3.2",
				Messages:    []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
				Temperature: &temp,
				TopK:        &topK,
				MaxTokens:   &maxTokens,
				Stop:        []string{"END"},
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = stream.Collect(nil)
			Expect(err).NotTo(HaveOccurred())

			opts := received["options"].(map[string]any)
			Expect(opts["temperature"]).To(BeNumerically("~", 0.7, 0.001))
			Expect(opts["top_k"]).To(BeNumerically("==", 40))
			Expect(opts["num_predict"]).To(BeNumerically("==", 256))
			Expect(opts["stop"]).To(ConsistOf("END"))
		})

		It("returns an error for a non-200 response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			}))
			defer server.Close()

			client := newClient(server.URL)
			_, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "missing",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("404"))
		})

		It("fails the stream when the body ends without a done chunk", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"model":"llama3.2","message":{"content":"partial"},"done":false}` + "\n"))
			}))
			defer server.Close()

			client := newClient(server.URL)
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "llama3.2",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = stream.Collect(nil)
			Expect(err).To(MatchError(llm.ErrStreamTruncated))
		})
	})
})
