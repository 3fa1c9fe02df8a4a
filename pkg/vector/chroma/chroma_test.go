package chroma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/vector"
	"github.com/gridmind/iso/pkg/vector/chroma"
)

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	writeCollection := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":   "col-1",
			"name": chroma.DefaultCollectionName,
		})
	}

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should connect to an existing collection", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal("GET"))
				writeCollection(w)
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
		})

		It("should create the collection when it does not exist", func() {
			var sawCreate bool
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == "GET" {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}

				sawCreate = true
				var body map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body["name"]).To(Equal("custom"))
				writeCollection(w)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:            server.URL,
				CollectionName: "custom",
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(sawCreate).To(BeTrue())
		})

		It("should return an error when the server is unreachable", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: "http://127.0.0.1:1"}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})

	Describe("Add", func() {
		It("should send documents with conversation metadata", func() {
			var added struct {
				IDs       []string         `json:"ids"`
				Metadatas []map[string]any `json:"metadatas"`
				Documents []string         `json:"documents"`
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/add") {
					Expect(json.NewDecoder(r.Body).Decode(&added)).To(Succeed())
					w.WriteHeader(http.StatusCreated)
					return
				}
				writeCollection(w)
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())

			err = driver.Add(context.Background(), []vector.Document{{
				ID:        "sam/alice/3",
				AgentID:   "sam",
				UserID:    "alice",
				TurnID:    3,
				Role:      "user",
				Text:      "remember the milk",
				Timestamp: time.Unix(0, 42),
				Embedding: []float32{0.1, 0.2},
			}})
			Expect(err).NotTo(HaveOccurred())

			Expect(added.IDs).To(Equal([]string{"sam/alice/3"}))
			Expect(added.Documents).To(Equal([]string{"remember the milk"}))
			Expect(added.Metadatas).To(HaveLen(1))
			Expect(added.Metadatas[0]["agent_id"]).To(Equal("sam"))
			Expect(added.Metadatas[0]["user_id"]).To(Equal("alice"))
			Expect(added.Metadatas[0]["turn_id"]).To(BeNumerically("==", 3))
		})

		It("should do nothing for empty input", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeCollection(w)
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Add(context.Background(), nil)).To(Succeed())
		})
	})

	Describe("Query", func() {
		It("should scope the query to the conversation and rank by score", func() {
			var queryBody map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/query") {
					Expect(json.NewDecoder(r.Body).Decode(&queryBody)).To(Succeed())

					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]any{
						"ids":       [][]string{{"sam/alice/7", "sam/alice/2"}},
						"distances": [][]float32{{0.1, 0.5}},
						"metadatas": [][]map[string]any{{
							{"agent_id": "sam", "user_id": "alice", "turn_id": 7, "role": "user", "ts": 700},
							{"agent_id": "sam", "user_id": "alice", "turn_id": 2, "role": "agent", "ts": 200},
						}},
						"documents": [][]string{{"seven", "two"}},
					})
					return
				}
				writeCollection(w)
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())

			results, err := driver.Query(context.Background(),
				[]float32{0.1, 0.2},
				vector.Filter{AgentID: "sam", UserID: "alice"}, 2)
			Expect(err).NotTo(HaveOccurred())

			where := queryBody["where"].(map[string]any)
			Expect(where).To(HaveKey("$and"))

			Expect(results).To(HaveLen(2))
			Expect(results[0].TurnID).To(Equal(uint64(7)))
			Expect(results[0].Text).To(Equal("seven"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
			Expect(results[1].Role).To(Equal("agent"))
		})

		It("should return empty results for an empty collection", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/query") {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]any{
						"ids":       [][]string{{}},
						"distances": [][]float32{{}},
					})
					return
				}
				writeCollection(w)
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())

			results, err := driver.Query(context.Background(),
				[]float32{0.1}, vector.Filter{AgentID: "sam", UserID: "alice"}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Prune", func() {
		It("should delete the oldest documents beyond keep", func() {
			var deleted []string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case strings.HasSuffix(r.URL.Path, "/get"):
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]any{
						"ids": []string{"sam/alice/2", "sam/alice/1", "sam/alice/3"},
						"metadatas": []map[string]any{
							{"turn_id": 2},
							{"turn_id": 1},
							{"turn_id": 3},
						},
					})
				case strings.HasSuffix(r.URL.Path, "/delete"):
					var body map[string][]string
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					deleted = body["ids"]
					w.WriteHeader(http.StatusOK)
				default:
					writeCollection(w)
				}
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())

			pruned, err := driver.Prune(context.Background(),
				vector.Filter{AgentID: "sam", UserID: "alice"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(Equal(2))
			Expect(deleted).To(ConsistOf("sam/alice/1", "sam/alice/2"))
		})
	})
})
