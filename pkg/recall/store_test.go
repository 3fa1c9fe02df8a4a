package recall_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/recall"
	"github.com/gridmind/iso/pkg/turn"
	testutils "github.com/gridmind/iso/pkg/utils/test"
	"github.com/gridmind/iso/pkg/vector"
)

var _ = Describe("Store", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		driver   *testutils.MockVectorDriver
		store    *recall.Store
	)

	newStore := func(maxRecords int) *recall.Store {
		s, err := recall.NewStore(recall.Config{
			Embedder:     embedder,
			VectorDriver: driver,
			MaxRecords:   maxRecords,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		store = newStore(0)
	})

	Describe("NewStore", func() {
		It("requires an embedder", func() {
			_, err := recall.NewStore(recall.Config{VectorDriver: driver, Logger: zap.NewNop()})
			Expect(err).To(HaveOccurred())
		})

		It("requires a vector driver", func() {
			_, err := recall.NewStore(recall.Config{Embedder: embedder, Logger: zap.NewNop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Index", func() {
		It("embeds and stores a turn with its metadata", func() {
			err := store.Index(ctx, &turn.Turn{
				ID:        3,
				AgentID:   "sam",
				UserID:    "alice",
				Role:      turn.RoleUser,
				Text:      "remember the milk",
				Timestamp: time.Now(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Documents).To(HaveLen(1))

			doc := driver.Documents[0]
			Expect(doc.ID).To(Equal("sam/alice/3"))
			Expect(doc.AgentID).To(Equal("sam"))
			Expect(doc.UserID).To(Equal("alice"))
			Expect(doc.TurnID).To(Equal(uint64(3)))
			Expect(doc.Text).To(Equal("remember the milk"))
			Expect(doc.Embedding).NotTo(BeEmpty())
		})

		It("skips empty turns without error", func() {
			err := store.Index(ctx, &turn.Turn{ID: 1, AgentID: "sam", UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Documents).To(BeEmpty())
		})

		It("returns ErrEmbed when embedding fails", func() {
			embedder.FailOn = "poison"
			err := store.Index(ctx, &turn.Turn{
				ID: 1, AgentID: "sam", UserID: "alice",
				Role: turn.RoleUser, Text: "poison",
			})
			Expect(err).To(MatchError(recall.ErrEmbed))
		})

		It("returns ErrIndex when the vector write fails", func() {
			driver.FailAdd = true
			err := store.Index(ctx, &turn.Turn{
				ID: 1, AgentID: "sam", UserID: "alice",
				Role: turn.RoleUser, Text: "hello",
			})
			Expect(err).To(MatchError(recall.ErrIndex))
		})

		It("prunes the oldest documents beyond the per-conversation cap", func() {
			store = newStore(2)

			for i := uint64(1); i <= 4; i++ {
				err := store.Index(ctx, &turn.Turn{
					ID: i, AgentID: "sam", UserID: "alice",
					Role: turn.RoleUser, Text: "some text",
					Timestamp: time.Now(),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(driver.Documents).To(HaveLen(2))
			Expect(driver.Documents[0].TurnID).To(Equal(uint64(3)))
			Expect(driver.Documents[1].TurnID).To(Equal(uint64(4)))
		})
	})

	Describe("Query", func() {
		It("returns an empty result from an empty index", func() {
			matches, err := store.Query(ctx, "sam", "alice", "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("returns matches scoped to the conversation", func() {
			driver.Results = []vector.QueryResult{
				{Document: vector.Document{AgentID: "sam", UserID: "alice", TurnID: 7, Role: "user", Text: "seven"}, Score: 0.9},
				{Document: vector.Document{AgentID: "sam", UserID: "bob", TurnID: 4, Role: "user", Text: "four"}, Score: 0.8},
				{Document: vector.Document{AgentID: "sam", UserID: "alice", TurnID: 2, Role: "agent", Text: "two"}, Score: 0.7},
			}

			matches, err := store.Query(ctx, "sam", "alice", "query", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].TurnID).To(Equal(uint64(7)))
			Expect(matches[0].Role).To(Equal(turn.RoleUser))
			Expect(matches[1].TurnID).To(Equal(uint64(2)))
		})

		It("returns nothing for k <= 0", func() {
			matches, err := store.Query(ctx, "sam", "alice", "query", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
			Expect(embedder.Calls).To(BeZero())
		})

		It("returns ErrEmbed when the query embedding fails", func() {
			embedder.FailOn = "broken query"
			_, err := store.Query(ctx, "sam", "alice", "broken query", 5)
			Expect(err).To(MatchError(recall.ErrEmbed))
		})
	})
})
