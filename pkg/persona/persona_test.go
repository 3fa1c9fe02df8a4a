package persona_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/persona"
)

const validPersona = `
agent_id = "sam"
system_prompt = "You are Sam."
model_identity = "llama3.2"
intro = "Hi, I'm Sam."
focus = "Keep answers short."
recent_n = 5
semantic_k = 3
temperature = 0.7
`

var _ = Describe("Parse", func() {
	It("decodes a full persona", func() {
		p, err := persona.Parse([]byte(validPersona))
		Expect(err).NotTo(HaveOccurred())

		Expect(p.AgentID).To(Equal("sam"))
		Expect(p.SystemPrompt).To(Equal("You are Sam."))
		Expect(p.ModelIdentity).To(Equal("llama3.2"))
		Expect(p.RecentN).To(Equal(5))
		Expect(p.SemanticK).To(Equal(3))
		Expect(p.Temperature).NotTo(BeNil())
		Expect(*p.Temperature).To(Equal(0.7))
		Expect(p.TopP).To(BeNil())
	})

	It("applies window defaults when omitted", func() {
		p, err := persona.Parse([]byte(`
agent_id = "sam"
model_identity = "llama3.2"
`))
		Expect(err).NotTo(HaveOccurred())

		Expect(p.RecentN).To(Equal(persona.DefaultRecentN))
		Expect(p.SemanticK).To(Equal(persona.DefaultSemanticK))
		Expect(p.MaxContextTurns).To(Equal(persona.DefaultMaxContextTurns))
		Expect(p.MaxContextTokens).To(Equal(persona.DefaultMaxContextTokens))
	})

	It("rejects unknown keys", func() {
		_, err := persona.Parse([]byte(`
agent_id = "sam"
model_identity = "llama3.2"
personality = "sunny"
`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`unknown persona key "personality"`))
	})

	It("requires agent_id", func() {
		_, err := persona.Parse([]byte(`model_identity = "llama3.2"`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("agent_id is required"))
	})

	It("requires model_identity", func() {
		_, err := persona.Parse([]byte(`agent_id = "sam"`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("model_identity is required"))
	})

	It("rejects malformed TOML", func() {
		_, err := persona.Parse([]byte(`agent_id = `))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Registry", func() {
	var dir string

	writePersona := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "personas")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(dir) })
	})

	It("loads every valid persona in the directory", func() {
		writePersona("sam.toml", validPersona)
		writePersona("flynn.toml", `
agent_id = "flynn"
model_identity = "llama3.2"
`)

		r, err := persona.NewRegistry(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.List()).To(ConsistOf("sam", "flynn"))

		p, err := r.Get("sam")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ModelIdentity).To(Equal("llama3.2"))
	})

	It("skips invalid personas without failing the load", func() {
		writePersona("sam.toml", validPersona)
		writePersona("broken.toml", `agent_id = `)

		r, err := persona.NewRegistry(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.List()).To(ConsistOf("sam"))
	})

	It("ignores non-toml files", func() {
		writePersona("notes.txt", "not a persona")

		r, err := persona.NewRegistry(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.List()).To(BeEmpty())
	})

	It("errors for unknown agents", func() {
		r, err := persona.NewRegistry(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		_, err = r.Get("nobody")
		Expect(err).To(HaveOccurred())
	})

	It("picks up new personas while watching", func() {
		r, err := persona.NewRegistry(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.Watch()).To(Succeed())
		writePersona("sam.toml", validPersona)

		Eventually(func() []string {
			return r.List()
		}).Should(ContainElement("sam"))
	})
})
