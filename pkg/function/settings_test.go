package function_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("Settings", func() {
	var settings function.Settings

	BeforeEach(func() {
		maxArgs := 16.0

		var err error

		settings, err = function.NewSettings(
			function.Setting{
				Name:        "shell",
				Type:        function.SettingString,
				Default:     "/bin/sh",
				Description: "Interpreter used for scripts",
				Enum:        []any{"/bin/sh", "/bin/bash"},
			},
			function.Setting{
				Name:    "max_args",
				Type:    function.SettingInteger,
				Maximum: &maxArgs,
			},
			function.Setting{
				Name:     "detach",
				Type:     function.SettingBoolean,
				Required: true,
			},
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps settings sorted by name", func() {
		names := make([]string, 0, settings.Len())
		for _, s := range settings.All() {
			names = append(names, s.Name)
		}

		Expect(names).To(Equal([]string{"detach", "max_args", "shell"}))
	})

	It("looks settings up by name", func() {
		s, ok := settings.Get("shell")

		Expect(ok).To(BeTrue())
		Expect(s.Default).To(Equal("/bin/sh"))

		_, ok = settings.Get("missing")
		Expect(ok).To(BeFalse())
	})

	It("rejects unknown types", func() {
		_, err := function.NewSettings(function.Setting{Name: "x", Type: "date"})

		Expect(err).To(MatchError(function.ErrInvalidSetting))
	})

	It("rejects blank names", func() {
		_, err := function.NewSettings(function.Setting{Name: " ", Type: function.SettingString})

		Expect(err).To(MatchError(function.ErrInvalidSetting))
	})

	Describe("Schema", func() {
		It("renders an object schema", func() {
			raw, err := json.Marshal(settings.Schema())
			Expect(err).NotTo(HaveOccurred())

			var doc map[string]any
			Expect(json.Unmarshal(raw, &doc)).To(Succeed())

			Expect(doc).To(HaveKeyWithValue("type", "object"))
			Expect(doc).To(HaveKeyWithValue("required", ConsistOf("detach")))
			Expect(doc).To(HaveKeyWithValue("additionalProperties", BeFalse()))
			Expect(doc["properties"]).To(HaveKey("shell"))
			Expect(doc["properties"]).To(HaveKeyWithValue("max_args",
				HaveKeyWithValue("maximum", BeNumerically("==", 16))))
		})
	})

	Describe("Resolve", func() {
		It("fills in defaults", func() {
			resolved, err := settings.Resolve(map[string]any{"detach": true})

			Expect(err).NotTo(HaveOccurred())
			Expect(resolved).To(Equal(map[string]any{"detach": true, "shell": "/bin/sh"}))
		})

		It("keeps supplied values", func() {
			resolved, err := settings.Resolve(map[string]any{"detach": false, "shell": "/bin/bash"})

			Expect(err).NotTo(HaveOccurred())
			Expect(resolved).To(HaveKeyWithValue("shell", "/bin/bash"))
		})

		It("rejects unknown names", func() {
			_, err := settings.Resolve(map[string]any{"detach": true, "colour": "red"})

			Expect(err).To(MatchError(function.ErrUnknownSetting))
			Expect(err.Error()).To(ContainSubstring("colour"))
		})

		It("rejects missing required values", func() {
			_, err := settings.Resolve(nil)

			Expect(err).To(MatchError(function.ErrInvalidSettingValue))
		})

		It("rejects values outside the enum", func() {
			_, err := settings.Resolve(map[string]any{"detach": true, "shell": "/bin/zsh"})

			Expect(err).To(MatchError(function.ErrInvalidSettingValue))
		})

		It("rejects values above the maximum", func() {
			_, err := settings.Resolve(map[string]any{"detach": true, "max_args": 64})

			Expect(err).To(MatchError(function.ErrInvalidSettingValue))
		})

		It("rejects values of the wrong type", func() {
			_, err := settings.Resolve(map[string]any{"detach": "yes"})

			Expect(err).To(MatchError(function.ErrInvalidSettingValue))
		})
	})

	Describe("DecodeSettings", func() {
		type scriptSettings struct {
			Shell   string `setting:"shell"`
			MaxArgs int    `setting:"max_args"`
			Detach  bool   `setting:"detach"`
		}

		It("decodes into a tagged struct", func() {
			var out scriptSettings

			err := function.DecodeSettings(map[string]any{
				"shell":    "/bin/bash",
				"max_args": "8",
				"detach":   true,
			}, &out)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(scriptSettings{Shell: "/bin/bash", MaxArgs: 8, Detach: true}))
		})

		It("fails on values that cannot be converted", func() {
			var out scriptSettings

			err := function.DecodeSettings(map[string]any{"max_args": "many"}, &out)

			Expect(err).To(HaveOccurred())
		})
	})
})
