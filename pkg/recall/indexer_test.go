package recall_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/recall"
	"github.com/gridmind/iso/pkg/turn"
	testutils "github.com/gridmind/iso/pkg/utils/test"
)

var _ = Describe("Indexer", func() {
	var (
		embedder *testutils.MockEmbedder
		driver   *testutils.MockVectorDriver
		store    *recall.Store
	)

	newIndexer := func(queueSize uint) *recall.Indexer {
		idx, err := recall.NewIndexer(&recall.IndexerConfig{
			Store:      store,
			NumWorkers: 1,
			QueueSize:  queueSize,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return idx
	}

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()

		var err error
		store, err = recall.NewStore(recall.Config{
			Embedder:     embedder,
			VectorDriver: driver,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a store", func() {
		_, err := recall.NewIndexer(&recall.IndexerConfig{Logger: zap.NewNop()})
		Expect(err).To(HaveOccurred())
	})

	It("indexes enqueued turns before Close returns", func() {
		idx := newIndexer(8)

		ok := idx.Enqueue(&turn.Turn{
			ID: 1, AgentID: "sam", UserID: "alice",
			Role: turn.RoleUser, Text: "hello",
			Timestamp: time.Now(),
		})
		Expect(ok).To(BeTrue())

		idx.Close()
		Expect(driver.Documents).To(HaveLen(1))
		Expect(driver.Documents[0].ID).To(Equal("sam/alice/1"))
	})

	It("retries transient embedding failures", func() {
		embedder.FailCount = 1
		idx := newIndexer(8)

		idx.Enqueue(&turn.Turn{
			ID: 1, AgentID: "sam", UserID: "alice",
			Role: turn.RoleUser, Text: "hello",
			Timestamp: time.Now(),
		})
		idx.Close()

		Expect(embedder.Calls).To(Equal(2))
		Expect(driver.Documents).To(HaveLen(1))
	})

	It("drops a turn after exhausting retries", func() {
		embedder.FailCount = 100
		idx, err := recall.NewIndexer(&recall.IndexerConfig{
			Store:       store,
			NumWorkers:  1,
			QueueSize:   8,
			MaxAttempts: 2,
			Logger:      zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		idx.Enqueue(&turn.Turn{
			ID: 1, AgentID: "sam", UserID: "alice",
			Role: turn.RoleUser, Text: "hello",
			Timestamp: time.Now(),
		})
		idx.Close()

		Expect(embedder.Calls).To(Equal(2))
		Expect(driver.Documents).To(BeEmpty())
	})
})
