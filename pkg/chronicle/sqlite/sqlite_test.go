package sqlite_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/chronicle"
	"github.com/gridmind/iso/pkg/chronicle/sqlite"
	"github.com/gridmind/iso/pkg/turn"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(sqlite.Config{DBPath: ":memory:"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("NewDriver", func() {
		It("requires a database path", func() {
			_, err := sqlite.NewDriver(sqlite.Config{}, zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})
	})

	Describe("Append and reads", func() {
		It("preserves append order with strictly increasing ids", func() {
			for i := 1; i <= 6; i++ {
				t, err := driver.Append(ctx, "sam", "alice", turn.Record{
					Role: turn.RoleUser,
					Text: fmt.Sprintf("turn %d", i),
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(t.ID).To(Equal(uint64(i)))
			}

			turns, err := driver.ReadAll(ctx, "sam", "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(6))
			for i, t := range turns {
				Expect(t.ID).To(Equal(uint64(i + 1)))
			}
		})

		It("round-trips role, text, and timestamp", func() {
			ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
			committed, err := driver.Append(ctx, "sam", "alice", turn.Record{
				Role:      turn.RoleAgent,
				Text:      "hello from the agent",
				Timestamp: ts,
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "sam", "alice", committed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Role).To(Equal(turn.RoleAgent))
			Expect(got.Text).To(Equal("hello from the agent"))
			Expect(got.Timestamp.UnixNano()).To(Equal(ts.UnixNano()))
		})

		It("returns ErrNotFound for missing turns", func() {
			_, err := driver.Get(ctx, "sam", "alice", 1)
			Expect(chronicle.IsNotFound(err)).To(BeTrue())
		})

		It("returns an empty slice for unknown conversations", func() {
			turns, err := driver.ReadAll(ctx, "sam", "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("reads the recent window in chronological order", func() {
			for i := 1; i <= 10; i++ {
				_, err := driver.Append(ctx, "sam", "alice", turn.Record{
					Role: turn.RoleUser,
					Text: fmt.Sprintf("turn %d", i),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			turns, err := driver.ReadRecent(ctx, "sam", "alice", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].Text).To(Equal("turn 8"))
			Expect(turns[2].Text).To(Equal("turn 10"))
		})

		It("allocates ids independently per conversation", func() {
			a, err := driver.Append(ctx, "sam", "alice", turn.Record{Role: turn.RoleUser, Text: "a"})
			Expect(err).NotTo(HaveOccurred())
			b, err := driver.Append(ctx, "sam", "bob", turn.Record{Role: turn.RoleUser, Text: "b"})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).To(Equal(uint64(1)))
			Expect(b.ID).To(Equal(uint64(1)))
		})

		It("rejects invalid records without writing", func() {
			_, err := driver.Append(ctx, "sam", "alice", turn.Record{Role: turn.RoleUser})
			Expect(err).To(MatchError(chronicle.ErrInvalidRecord))

			turns, readErr := driver.ReadAll(ctx, "sam", "alice")
			Expect(readErr).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})
})
