package config

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

var _ = Describe("Writer", func() {
	var (
		homeDir string
		workDir string
		writer  *Writer
	)

	BeforeEach(func() {
		tmp := GinkgoT().TempDir()
		homeDir = filepath.Join(tmp, "home")
		workDir = filepath.Join(tmp, "work")
		writer = NewWriterWithDirs(homeDir, workDir)
	})

	It("writes the defaults with restrictive permissions", func() {
		Expect(writer.IsGlobalConfigExists()).To(BeFalse())
		Expect(writer.WriteGlobal(DefaultConfig())).To(Succeed())
		Expect(writer.IsGlobalConfigExists()).To(BeTrue())

		info, err := os.Stat(writer.GlobalConfigPath())
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(ConfigFileMode)))

		data, err := os.ReadFile(writer.GlobalConfigPath())
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(string(data), "#:schema ")).To(BeTrue())
		Expect(string(data)).To(MatchRegexp(`default_timeout = ['"]10s['"]`))
	})

	It("round-trips through the loader", func() {
		cfg := DefaultConfig()
		cfg.Global.LogLevel = "info"
		cfg.Plugins.Plugins = []*config.PluginInstanceConfig{{
			Name:     "notes",
			Type:     config.PluginTypeExec,
			Path:     "/opt/notes.sh",
			Settings: map[string]any{"editor": "vim"},
		}}

		Expect(writer.WriteProject(cfg)).To(Succeed())
		Expect(writer.IsProjectConfigExists()).To(BeTrue())
		Expect(writer.ProjectConfigPath()).To(Equal(filepath.Join(workDir, ".launchkit", "config.toml")))

		loader, err := NewKoanfLoaderWithDirs(homeDir, workDir)
		Expect(err).NotTo(HaveOccurred())

		loaded, err := loader.Load(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Global.LogLevel).To(Equal("info"))
		Expect(loaded.Plugins.Plugins).To(HaveLen(1))
		Expect(loaded.Plugins.Plugins[0].Settings).To(HaveKeyWithValue("editor", "vim"))
	})

	It("replaces an existing file without leaving a temp file", func() {
		path := writer.GlobalConfigPath()
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("old"), 0o666)).To(Succeed())
		Expect(os.Chmod(path, 0o666)).To(Succeed())

		Expect(writer.WriteGlobal(DefaultConfig())).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(ConfigFileMode)))
		entries, err := os.ReadDir(filepath.Dir(path))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal("config.toml"))
	})

	It("refuses a nil config", func() {
		Expect(writer.WriteGlobal(nil)).To(MatchError(ContainSubstring("config is nil")))
	})
})
