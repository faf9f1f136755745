package config

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Defaults", func() {
	Describe("DefaultConfig", func() {
		It("should return a complete config with all defaults", func() {
			cfg := DefaultConfig()
			Expect(cfg.Version).To(Equal(1))
			Expect(cfg.Global).NotTo(BeNil())
			Expect(cfg.Launcher).NotTo(BeNil())
			Expect(cfg.Plugins).NotTo(BeNil())
			Expect(cfg.CrashDump).NotTo(BeNil())
		})

		It("should pass validation", func() {
			Expect(NewValidator().Validate(DefaultConfig())).To(Succeed())
		})
	})

	Describe("DefaultGlobalConfig", func() {
		It("should return global config with correct defaults", func() {
			cfg := DefaultGlobalConfig()
			Expect(cfg.DefaultTimeout.ToDuration()).To(Equal(10 * time.Second))
			Expect(cfg.LogLevel).To(Equal("error"))
			Expect(cfg.IsNoColor()).To(BeFalse())
		})
	})

	Describe("DefaultPluginConfig", func() {
		It("should enable built-ins and discovery", func() {
			cfg := DefaultPluginConfig()
			Expect(cfg.IsBuiltinsEnabled()).To(BeTrue())
			Expect(cfg.IsDiscoveryEnabled()).To(BeTrue())
			Expect(cfg.GetDefaultTimeout()).To(Equal(5 * time.Second))
			Expect(cfg.Plugins).To(BeEmpty())
		})
	})

	Describe("DefaultCrashDumpConfig", func() {
		It("should keep thirty days of dumps", func() {
			cfg := DefaultCrashDumpConfig()
			Expect(cfg.IsEnabled()).To(BeTrue())
			Expect(cfg.GetMaxDumps()).To(Equal(10))
			Expect(cfg.GetMaxAge().ToDuration()).To(Equal(720 * time.Hour))
			Expect(cfg.IsIncludeConfig()).To(BeTrue())
		})
	})
})
