package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

var _ = Describe("PluginConfig", func() {
	Describe("defaults", func() {
		It("enables discovery and built-ins when unset", func() {
			var cfg *config.PluginConfig

			Expect(cfg.IsDiscoveryEnabled()).To(BeTrue())
			Expect(cfg.IsBuiltinsEnabled()).To(BeTrue())
			Expect(cfg.GetDefaultTimeout()).To(Equal(5 * time.Second))
		})

		It("honors explicit values", func() {
			off := false
			cfg := &config.PluginConfig{
				Discover:       &off,
				Builtins:       &off,
				DefaultTimeout: config.Duration(time.Second),
			}

			Expect(cfg.IsDiscoveryEnabled()).To(BeFalse())
			Expect(cfg.IsBuiltinsEnabled()).To(BeFalse())
			Expect(cfg.GetDefaultTimeout()).To(Equal(time.Second))
		})
	})

	Describe("GetDirectory", func() {
		It("falls back when unset", func() {
			var cfg *config.PluginConfig

			Expect(cfg.GetDirectory("/var/lib/launchkit")).To(Equal("/var/lib/launchkit"))
		})

		It("expands the home directory", func() {
			home, err := os.UserHomeDir()
			Expect(err).NotTo(HaveOccurred())

			cfg := &config.PluginConfig{Directory: "~/plugins"}

			Expect(cfg.GetDirectory("")).To(Equal(filepath.Join(home, "plugins")))
		})
	})

	Describe("PluginInstanceConfig", func() {
		It("is enabled and active by default", func() {
			cfg := &config.PluginInstanceConfig{Name: "shortcut"}

			Expect(cfg.IsInstanceEnabled()).To(BeTrue())
			Expect(cfg.IsActive()).To(BeTrue())
		})

		It("inherits the default timeout", func() {
			cfg := &config.PluginInstanceConfig{}

			Expect(cfg.GetTimeout(3 * time.Second)).To(Equal(3 * time.Second))

			cfg.Timeout = config.Duration(time.Minute)
			Expect(cfg.GetTimeout(3 * time.Second)).To(Equal(time.Minute))
		})
	})

	DescribeTable("PluginType.Valid",
		func(t config.PluginType, expected bool) {
			Expect(t.Valid()).To(Equal(expected))
		},
		Entry("builtin", config.PluginTypeBuiltin, true),
		Entry("go", config.PluginTypeGo, true),
		Entry("exec", config.PluginTypeExec, true),
		Entry("lua", config.PluginTypeLua, true),
		Entry("grpc", config.PluginType("grpc"), false),
		Entry("empty", config.PluginType(""), false),
	)
})

var _ = Describe("ExpandHome", func() {
	It("leaves other paths alone", func() {
		Expect(config.ExpandHome("/etc/launchkit")).To(Equal("/etc/launchkit"))
		Expect(config.ExpandHome("~user/x")).To(Equal("~user/x"))
		Expect(config.ExpandHome("")).To(BeEmpty())
	})

	It("expands a bare tilde", func() {
		home, err := os.UserHomeDir()
		Expect(err).NotTo(HaveOccurred())

		Expect(config.ExpandHome("~")).To(Equal(home))
	})
})

var _ = Describe("CrashDumpConfig", func() {
	It("uses defaults when unset", func() {
		var cfg *config.CrashDumpConfig

		Expect(cfg.IsEnabled()).To(BeTrue())
		Expect(cfg.GetDumpDir("/tmp/dumps")).To(Equal("/tmp/dumps"))
		Expect(cfg.GetMaxDumps()).To(Equal(config.DefaultMaxDumps))
		Expect(cfg.GetMaxAge().ToDuration()).To(Equal(30 * 24 * time.Hour))
		Expect(cfg.IsIncludeConfig()).To(BeTrue())
	})

	It("honors explicit values", func() {
		off := false
		dir := "/srv/dumps"
		maxDumps := 3

		cfg := &config.CrashDumpConfig{
			Enabled:       &off,
			DumpDir:       &dir,
			MaxDumps:      &maxDumps,
			MaxAge:        config.Duration(time.Hour),
			IncludeConfig: &off,
		}

		Expect(cfg.IsEnabled()).To(BeFalse())
		Expect(cfg.GetDumpDir("/tmp/dumps")).To(Equal("/srv/dumps"))
		Expect(cfg.GetMaxDumps()).To(Equal(3))
		Expect(cfg.GetMaxAge().ToDuration()).To(Equal(time.Hour))
		Expect(cfg.IsIncludeConfig()).To(BeFalse())
	})

	It("reports retention limits together", func() {
		none := 0
		cfg := &config.CrashDumpConfig{MaxDumps: &none}

		maxDumps, maxAge := cfg.Retention()
		Expect(maxDumps).To(BeZero())
		Expect(maxAge).To(Equal(config.DefaultMaxAgeDays * config.Day))
	})
})

var _ = Describe("Config accessors", func() {
	It("creates sections on demand", func() {
		cfg := &config.Config{}

		Expect(cfg.GetGlobal()).NotTo(BeNil())
		Expect(cfg.GetLauncher().HasOpener()).To(BeFalse())
		Expect(cfg.GetPlugins()).To(BeIdenticalTo(cfg.Plugins))
		Expect(cfg.GetCrashDump()).NotTo(BeNil())
		Expect(cfg.GetGlobal().IsNoColor()).To(BeFalse())
	})
})
