package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/liminalpurple/sayangku/internal/storage"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test Matrix connection and functionality",
		Long: `Test that all components are working correctly:

  - Configuration loads properly
  - Matrix connection and authentication
  - Media upload/download
  - Sticker library backend (file or Redis)
  - Claude translation

This is useful for verifying setup before running the server.`,
		RunE: runTest,
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("🧪 Running sayangku tests...")
	fmt.Println()

	fmt.Print("📋 Loading configuration and services... ")
	a, err := newApp(ctx, appOptions{matrix: true, requireM: true})
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	defer a.Close()
	fmt.Printf("✅\n   Logged in as: %s\n", a.matrix.UserID)
	if a.cfg.Matrix.RoomID == "" {
		fmt.Println("   ⚠️  No room_id configured")
	}
	fmt.Println()

	fmt.Print("🖼️  Creating test image... ")
	testImageData, err := createTestImage()
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	fmt.Println("✅")

	fmt.Print("📤 Uploading test image to Matrix... ")
	testMXC, err := a.matrix.UploadMedia(ctx, testImageData, "image/png")
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	fmt.Printf("✅\n   MXC URI: %s\n", testMXC)

	fmt.Print("📥 Downloading test image... ")
	downloadedData, downloadedMime, err := a.matrix.DownloadMedia(ctx, testMXC)
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	fmt.Printf("✅\n   Size: %d bytes, MIME: %s\n", len(downloadedData), downloadedMime)

	fmt.Print("ℹ️  Extracting image info... ")
	imageInfo, err := storage.GetImageInfo(downloadedData)
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	fmt.Printf("✅\n   Dimensions: %dx%d, aspect ratio %.2f\n", imageInfo.Width, imageInfo.Height, imageInfo.AspectRatio())

	fmt.Printf("💾 Reading sticker library (%s)... ", a.cfg.Storage.Backend)
	stickers, err := a.gallery.Library(ctx)
	if err != nil {
		fmt.Printf("❌\n   Error: %v\n", err)
		return err
	}
	fmt.Printf("✅\n   %d sticker(s)\n", len(stickers))
	fmt.Println()

	if a.assistant == nil {
		fmt.Println("⚠️  No Anthropic API key configured, skipping translation")
	} else {
		fmt.Print("✨ Translating with Claude... ")
		out, err := a.assistant.Translate(ctx, "I miss you", "English", "Indonesian")
		if err != nil {
			fmt.Printf("❌\n   Error: %v\n", err)
			return err
		}
		fmt.Printf("✅\n   I miss you → %s\n", out)
	}
	fmt.Println()

	fmt.Println("🎉 All tests passed! Sayangku is ready to run.")
	fmt.Println()
	fmt.Println("To start the app, run:")
	fmt.Println("  ./sayangku serve")
	fmt.Println()

	return nil
}

// createTestImage generates a small 2:1 test PNG
func createTestImage() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff})
	img.Set(1, 0, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
