package cmd

import (
	"fmt"
	"os"
	"os/exec"
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

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Postreel",
	Long:  `Configure API keys, create directories, and set up the environment for Postreel.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Postreel Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if !commandExists(tool) {
			return fmt.Errorf("%s not found - install from https://ffmpeg.org/download.html", tool)
		}
	}

	if !commandExists("google-chrome") && !commandExists("chromium") && !commandExists("chromium-browser") {
		fmt.Println(warnStyle.Render("Chrome/Chromium not found - scrolling capture needs a local browser"))
	}

	fmt.Println(successStyle.Render("✓ Tools available"))
	return nil
}

func createDirectories() error {
	dirs := []string{"output", "tmp"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
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

	env := make(map[string]string)

	if err := configureGoogleCloud(env); err != nil {
		return err
	}

	if err := configureRequiredKeys(env); err != nil {
		return err
	}

	if err := configureImageSearch(env); err != nil {
		return err
	}

	if err := configureNotifications(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureGoogleCloud(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Required for Firestore, text-to-speech, and video hosting").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		fmt.Println(infoStyle.Render("Skipping Google Cloud - videos will use the in-memory store and local output"))
		return nil
	}

	var project, credentials, bucket string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Cloud Project ID").
				Value(&project).
				Validate(required("Project ID")),
			huh.NewInput().
				Title("Service Account Credentials Path").
				Description("Path to a service account JSON key file").
				Placeholder("service-account.json").
				Value(&credentials),
			huh.NewInput().
				Title("Cloud Storage Bucket").
				Description("Bucket for hosting finished videos (optional)").
				Value(&bucket),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["GCP_PROJECT_ID"] = strings.TrimSpace(project)
	if credentials = strings.TrimSpace(credentials); credentials != "" {
		env["GOOGLE_APPLICATION_CREDENTIALS"] = credentials
	}
	if bucket = strings.TrimSpace(bucket); bucket != "" {
		env["GCS_BUCKET"] = bucket
	}

	return nil
}

func configureRequiredKeys(env map[string]string) error {
	var groqKey string
	if err := huh.NewInput().
		Title("GROQ API Key").
		Description("https://console.groq.com/keys").
		Value(&groqKey).
		Validate(required("GROQ API Key")).
		Run(); err != nil {
		return err
	}

	env["GROQ_API_KEY"] = strings.TrimSpace(groqKey)
	return nil
}

func configureImageSearch(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup Google Custom Search?").
		Description("Required for fetching slideshow images (optional)").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	fmt.Println(infoStyle.Render(`
To create Custom Search credentials:
1. Go to https://console.cloud.google.com/apis/credentials
2. Click "Create Credentials" → "API Key"
3. Go to https://programmablesearchengine.google.com/
4. Create a search engine and copy the Search Engine ID
`))

	var apiKey, engineID string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Search API Key").
				Value(&apiKey),
			huh.NewInput().
				Title("Search Engine ID").
				Value(&engineID),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		env["GOOGLE_SEARCH_API_KEY"] = apiKey
	}
	if engineID = strings.TrimSpace(engineID); engineID != "" {
		env["GOOGLE_SEARCH_ENGINE_ID"] = engineID
	}

	return nil
}

func configureNotifications(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup email notifications?").
		Description("Sends a link when a video finishes (optional)").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	var endpoint, recipient string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mail Endpoint URL").
				Placeholder("https://example.com/api/send-email").
				Value(&endpoint),
			huh.NewInput().
				Title("Recipient Email").
				Value(&recipient),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		env["MAIL_ENDPOINT"] = endpoint
	}
	if recipient = strings.TrimSpace(recipient); recipient != "" {
		env["NOTIFY_EMAIL"] = recipient
	}

	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GCP_PROJECT_ID",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GCS_BUCKET",
		"GROQ_API_KEY",
		"GOOGLE_SEARCH_API_KEY",
		"GOOGLE_SEARCH_ENGINE_ID",
		"MAIL_ENDPOINT",
		"NOTIFY_EMAIL",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println(infoStyle.Render(`
Next steps:
  postreel once        Generate a video for the next eligible post
  postreel run         Start the worker loop
  postreel status <id> Inspect a post's tasks and videos
`))
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
