package plugin_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
)

var _ = Describe("Discover", func() {
	var dir string

	manifest := func(rel, body string) {
		path := filepath.Join(dir, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns nothing for a missing directory", func() {
		cfgs, err := plugin.Discover(filepath.Join(dir, "missing"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfgs).To(BeEmpty())
	})

	It("returns nothing for an empty path", func() {
		cfgs, err := plugin.Discover("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfgs).To(BeNil())
	})

	It("finds manifests at any depth", func() {
		manifest("notes/function.yaml", `
name: notes
type: exec
path: notes.sh
args: ["--profile", "work"]
requires: ">= 1.0"
timeout: 2s
settings:
  editor: vim
`)
		manifest("vendor/tools/bookmark/function.yml", `
path: bookmark.lua
active: false
`)
		manifest("ignored/other.yaml", `path: x.sh`)

		cfgs, err := plugin.Discover(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfgs).To(HaveLen(2))

		notes := cfgs[0]
		Expect(notes.Name).To(Equal("notes"))
		Expect(notes.Type).To(Equal(config.PluginTypeExec))
		Expect(notes.Path).To(Equal(filepath.Join(dir, "notes", "notes.sh")))
		Expect(notes.Args).To(Equal([]string{"--profile", "work"}))
		Expect(notes.Requires).To(Equal(">= 1.0"))
		Expect(notes.Timeout).To(Equal(config.Duration(2 * time.Second)))
		Expect(notes.Settings).To(HaveKeyWithValue("editor", "vim"))

		bookmark := cfgs[1]
		Expect(bookmark.Name).To(Equal("bookmark"))
		Expect(bookmark.Type).To(Equal(config.PluginTypeLua))
		Expect(bookmark.IsActive()).To(BeFalse())
	})

	It("keeps absolute paths", func() {
		manifest("abs/function.yaml", "path: /opt/plugins/open.so\n")

		cfgs, err := plugin.Discover(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfgs).To(HaveLen(1))
		Expect(cfgs[0].Path).To(Equal("/opt/plugins/open.so"))
		Expect(cfgs[0].Type).To(Equal(config.PluginTypeGo))
	})

	It("skips invalid manifests and reports them", func() {
		manifest("good/function.yaml", "path: good.sh\n")
		manifest("nopath/function.yaml", "name: broken\n")
		manifest("badtype/function.yaml", "path: x\ntype: builtin\n")
		manifest("badtimeout/function.yaml", "path: x\ntimeout: soon\n")
		manifest("badyaml/function.yaml", "path: [\n")

		cfgs, err := plugin.Discover(dir)
		Expect(err).To(MatchError(plugin.ErrInvalidManifest))
		Expect(cfgs).To(HaveLen(1))
		Expect(cfgs[0].Name).To(Equal("good"))
	})

	It("fails when the path is a file", func() {
		file := filepath.Join(dir, "file")
		Expect(os.WriteFile(file, nil, 0o600)).To(Succeed())

		_, err := plugin.Discover(file)
		Expect(err).To(HaveOccurred())
	})
})
