package cli

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"jarvis/internal/core"
	"jarvis/pkg"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Run one exchange and print the reply",
		Args:  cobra.ArbitraryArgs,
		RunE:  runAsk,
	}

	cmd.Flags().StringP("attach", "a", "", "Attach an image, video or audio file")
	cmd.Flags().Bool("raw", false, "Print the reply without markdown rendering")
	cmd.Flags().Bool("reasoning", false, "Print the reasoning trace")
	cmd.Flags().String("image-out", "jarvis-image", "File name, without extension, for generated images")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	attach, _ := cmd.Flags().GetString("attach")
	raw, _ := cmd.Flags().GetBool("raw")
	showReasoning, _ := cmd.Flags().GetBool("reasoning")
	imageOut, _ := cmd.Flags().GetString("image-out")

	sub := pkg.Submission{Text: strings.Join(args, " ")}
	if attach != "" {
		media, err := readMedia(attach)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		sub.Media = media
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, !noVoiceFlag)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()
	a.config.Assistant.ReasoningEnabled = showReasoning

	observer := &reasoningOnly{printer: newPrinter(cmd.ErrOrStderr())}
	coord, err := a.newCoordinator(ctx, observer)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer coord.Close()

	outcome, err := coord.Submit(ctx, sub)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	reply := outcome.Reply.Text
	if outcome.Reply.ImageRef != "" {
		path, err := saveDataURI(outcome.Reply.ImageRef, imageOut)
		if err != nil {
			return fmt.Errorf("save image: %w", err)
		}
		reply += "\n\n`" + path + "`"
	}
	if !raw {
		if rendered, err := renderMarkdown(reply); err == nil {
			reply = rendered
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

// reasoningOnly forwards the reasoning trace and advisories, leaving the
// reply itself to the caller
type reasoningOnly struct {
	core.NopObserver
	printer *printer
}

func (r *reasoningOnly) Reasoning(lines []string) { r.printer.Reasoning(lines) }

func (r *reasoningOnly) TurnAdded(turn pkg.Turn) {
	if turn.Role == pkg.RoleSystem && turn.IsError {
		r.printer.TurnAdded(turn)
	}
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

// saveDataURI writes a base64 data: URI to base plus an extension for its type
func saveDataURI(uri, base string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", fmt.Errorf("malformed data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("malformed data URI: %w", err)
	}

	mimeType, _, _ := strings.Cut(header, ";")
	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}

	path := base + ext
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func readMedia(path string) (*pkg.Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > core.MaxMediaBytes {
		return nil, core.ErrMediaTooLarge
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return nil, fmt.Errorf("unknown media type for %s", path)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	kind := pkg.MediaImage
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		kind = pkg.MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		kind = pkg.MediaAudio
	case !strings.HasPrefix(mimeType, "image/"):
		return nil, fmt.Errorf("unsupported media type %s", mimeType)
	}

	return &pkg.Media{
		Kind:     kind,
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
		URL:      path,
	}, nil
}
