package inmemory_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/chronicle/inmemory"
	"github.com/gridmind/iso/pkg/turn"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	appendText := func(agentID, userID, text string) *turn.Turn {
		t, err := driver.Append(ctx, agentID, userID, turn.Record{
			Role:      turn.RoleUser,
			Text:      text,
			Timestamp: time.Now(),
		})
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	Describe("Append", func() {
		It("assigns strictly increasing turn ids", func() {
			for i := 1; i <= 5; i++ {
				t := appendText("sam", "alice", fmt.Sprintf("turn %d", i))
				Expect(t.ID).To(Equal(uint64(i)))
			}
		})

		It("allocates ids independently per conversation", func() {
			Expect(appendText("sam", "alice", "a").ID).To(Equal(uint64(1)))
			Expect(appendText("sam", "bob", "b").ID).To(Equal(uint64(1)))
			Expect(appendText("sam", "alice", "c").ID).To(Equal(uint64(2)))
		})

		It("rejects unknown roles", func() {
			_, err := driver.Append(ctx, "sam", "alice", turn.Record{
				Role: turn.Role("wizard"),
				Text: "hi",
			})
			Expect(err).To(MatchError(chronicle.ErrInvalidRecord))
		})

		It("rejects empty text", func() {
			_, err := driver.Append(ctx, "sam", "alice", turn.Record{
				Role: turn.RoleUser,
			})
			Expect(err).To(MatchError(chronicle.ErrInvalidRecord))
		})

		It("fills a zero timestamp", func() {
			t, err := driver.Append(ctx, "sam", "alice", turn.Record{
				Role: turn.RoleUser,
				Text: "hi",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Timestamp.IsZero()).To(BeFalse())
		})
	})

	Describe("ReadAll", func() {
		It("returns turns in exact append order", func() {
			for i := 1; i <= 10; i++ {
				appendText("sam", "alice", fmt.Sprintf("turn %d", i))
			}

			turns, err := driver.ReadAll(ctx, "sam", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(10))
			for i, t := range turns {
				Expect(t.ID).To(Equal(uint64(i + 1)))
				Expect(t.Text).To(Equal(fmt.Sprintf("turn %d", i+1)))
			}
		})

		It("returns an empty slice for an unknown conversation", func() {
			turns, err := driver.ReadAll(ctx, "sam", "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("isolates conversations from each other", func() {
			appendText("sam", "alice", "for alice")
			appendText("sam", "bob", "for bob")

			turns, err := driver.ReadAll(ctx, "sam", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Text).To(Equal("for alice"))
		})
	})

	Describe("ReadRecent", func() {
		It("returns the last n turns in chronological order", func() {
			for i := 1; i <= 10; i++ {
				appendText("sam", "alice", fmt.Sprintf("turn %d", i))
			}

			turns, err := driver.ReadRecent(ctx, "sam", "alice", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].ID).To(Equal(uint64(8)))
			Expect(turns[1].ID).To(Equal(uint64(9)))
			Expect(turns[2].ID).To(Equal(uint64(10)))
		})

		It("returns everything when fewer than n turns exist", func() {
			appendText("sam", "alice", "only one")

			turns, err := driver.ReadRecent(ctx, "sam", "alice", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
		})

		It("returns an empty slice for n <= 0", func() {
			appendText("sam", "alice", "hi")

			turns, err := driver.ReadRecent(ctx, "sam", "alice", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})

	Describe("Get", func() {
		It("round-trips a committed turn", func() {
			ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			committed, err := driver.Append(ctx, "sam", "alice", turn.Record{
				Role:      turn.RoleAgent,
				Text:      "round trip",
				Timestamp: ts,
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "sam", "alice", committed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Text).To(Equal("round trip"))
			Expect(got.Role).To(Equal(turn.RoleAgent))
			Expect(got.Timestamp).To(Equal(ts))
		})

		It("returns ErrNotFound for an unknown id", func() {
			_, err := driver.Get(ctx, "sam", "alice", 42)
			Expect(chronicle.IsNotFound(err)).To(BeTrue())
		})
	})
})
