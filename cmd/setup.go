package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// envOrder is the order keys are written to .env.
var envOrder = []string{
	"DASHSCOPE_API_KEY",
	"VOLCENGINE_ACCESS_KEY_ID",
	"VOLCENGINE_SECRET_ACCESS_KEY",
	"GROQ_API_KEY",
	"DEEPSEEK_API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_CLOUD_PROJECT",
	"GCS_BUCKET",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Reelsmith",
	Long:  `Choose providers, enter their API keys and write them to .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Reelsmith Setup"))

	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	var providers []string
	if err := huh.NewMultiSelect[string]().
		Title("Which providers do you use?").
		Options(
			huh.NewOption("Tongyi (DashScope) - text and images", "tongyi"),
			huh.NewOption("VolcEngine (Jimeng) - images", "volcengine"),
			huh.NewOption("Groq - text", "groq"),
			huh.NewOption("DeepSeek - text", "deepseek"),
			huh.NewOption("Gemini - text", "gemini"),
		).
		Value(&providers).
		Run(); err != nil {
		return err
	}

	env := make(map[string]string)
	for _, p := range providers {
		if err := askKeys(env, providerKeys[p]); err != nil {
			return fmt.Errorf("configure %s: %w", p, err)
		}
	}

	if err := configureGCS(env); err != nil {
		return err
	}

	return writeEnvFile(".env", env)
}

type keyPrompt struct {
	env    string
	title  string
	hint   string
	secret bool
}

var providerKeys = map[string][]keyPrompt{
	"tongyi": {
		{env: "DASHSCOPE_API_KEY", title: "DashScope API Key", hint: "https://dashscope.console.aliyun.com/apiKey", secret: true},
	},
	"volcengine": {
		{env: "VOLCENGINE_ACCESS_KEY_ID", title: "VolcEngine Access Key ID", hint: "https://console.volcengine.com/iam/keymanage"},
		{env: "VOLCENGINE_SECRET_ACCESS_KEY", title: "VolcEngine Secret Access Key", secret: true},
	},
	"groq": {
		{env: "GROQ_API_KEY", title: "GROQ API Key", hint: "https://console.groq.com/keys", secret: true},
	},
	"deepseek": {
		{env: "DEEPSEEK_API_KEY", title: "DeepSeek API Key", hint: "https://platform.deepseek.com/api_keys", secret: true},
	},
	"gemini": {
		{env: "GEMINI_API_KEY", title: "Gemini API Key", hint: "https://aistudio.google.com/apikey", secret: true},
	},
}

func askKeys(env map[string]string, keys []keyPrompt) error {
	values := make([]string, len(keys))
	fields := make([]huh.Field, len(keys))
	for i, k := range keys {
		input := huh.NewInput().
			Title(k.title).
			Description(k.hint).
			Value(&values[i]).
			Validate(required(k.title))
		if k.secret {
			input = input.EchoMode(huh.EchoModePassword)
		}
		fields[i] = input
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	for i, k := range keys {
		env[k.env] = strings.TrimSpace(values[i])
	}
	return nil
}

func configureGCS(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Mirror images to Google Cloud Storage?").
		Description("Optional; also enable gcs.enabled in config.yaml").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	var project, bucket string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Cloud Project").
				Value(&project),
			huh.NewInput().
				Title("GCS Bucket").
				Value(&bucket).
				Validate(required("GCS Bucket")),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if project = strings.TrimSpace(project); project != "" {
		env["GOOGLE_CLOUD_PROJECT"] = project
	}
	env["GCS_BUCKET"] = strings.TrimSpace(bucket)
	return nil
}

func writeEnvFile(path string, env map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for _, key := range envOrder {
		if val, ok := env[key]; ok && val != "" {
			if _, err := fmt.Fprintf(f, "%s=%s\n", key, val); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}

	fmt.Println(successStyle.Render("✓ Created " + path))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Pick a default provider in config.yaml (llm.provider)")
	fmt.Println("  2. Run: reelsmith content -t \"your topic\"")
	fmt.Println("  3. Run: reelsmith images -t \"your topic\" -c 2")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
