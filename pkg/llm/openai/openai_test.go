package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gridmind/iso/pkg/llm"
	"github.com/gridmind/iso/pkg/llm/openai"
)

var _ = Describe("Client", func() {
	newClient := func(url, apiKey string) *openai.Client {
		c, err := openai.NewClient(openai.Config{BaseURL: url, APIKey: apiKey})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("Name", func() {
		It("returns 'openai'", func() {
			Expect(newClient("", "").Name()).To(Equal("openai"))
		})
	})

	Describe("ChatStream", func() {
		It("streams SSE deltas through the [DONE] sentinel", func() {
			var auth string
			var received map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
				auth = r.Header.Get("Authorization")
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

				w.Header().Set("Content-Type", "text/event-stream")
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[{\"delta\":{\"content\":\"Hello\"},\"finish_reason\":null}]}\n\n"))
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[{\"delta\":{\"content\":\" world\"},\"finish_reason\":null}]}\n\n"))
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"))
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":2,\"total_tokens\":11}}\n\n"))
				w.Write([]byte("data: [DONE]\n\n"))
			}))
			defer server.Close()

			client := newClient(server.URL, "sk-test")
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "gpt-4.1",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
				System:   "You are Sam.",
			})
			Expect(err).NotTo(HaveOccurred())

			completion, err := stream.Collect(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(Equal("Hello world"))
			Expect(completion.Model).To(Equal("gpt-4.1"))
			Expect(completion.StopReason).To(Equal("stop"))
			Expect(completion.Usage).NotTo(BeNil())
			Expect(completion.Usage.TotalTokens).To(Equal(11))

			Expect(auth).To(Equal("Bearer sk-test"))
			Expect(received["stream"]).To(BeTrue())

			streamOpts := received["stream_options"].(map[string]any)
			Expect(streamOpts["include_usage"]).To(BeTrue())

			messages := received["messages"].([]any)
			first := messages[0].(map[string]any)
			Expect(first["role"]).To(Equal("system"))
		})

		It("treats the sentinel as final even without a finish_reason chunk", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[{\"delta\":{\"content\":\"hi\"},\"finish_reason\":null}]}\n\n"))
				w.Write([]byte("data: [DONE]\n\n"))
			}))
			defer server.Close()

			client := newClient(server.URL, "")
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "gpt-4.1",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).NotTo(HaveOccurred())

			completion, err := stream.Collect(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(Equal("hi"))
			Expect(completion.StopReason).To(Equal(llm.StopReasonStop))
		})

		It("returns an error for a non-200 response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			}))
			defer server.Close()

			client := newClient(server.URL, "bad-key")
			_, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "gpt-4.1",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("401"))
		})

		It("fails the stream when it ends without the sentinel", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("data: {\"model\":\"gpt-4.1\",\"choices\":[{\"delta\":{\"content\":\"partial\"},\"finish_reason\":null}]}\n\n"))
			}))
			defer server.Close()

			client := newClient(server.URL, "")
			stream, err := client.ChatStream(context.Background(), &llm.ChatRequest{
				Model:    "gpt-4.1",
				Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = stream.Collect(nil)
			Expect(err).To(MatchError(llm.ErrStreamTruncated))
		})
	})
})
