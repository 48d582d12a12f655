package printer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Marker is an object drawn on the floorplan, in image pixels
type Marker struct {
	Label string
	X, Y  float64
}

// MarkerFromIndoor converts an indoor position to image pixels. Indoor
// positions are map coordinates where the image spans lat [-height, 0]
// and lng [0, width].
func MarkerFromIndoor(label string, lat, lng float64) Marker {
	return Marker{Label: label, X: lng, Y: -lat}
}

// SheetConfig describes one printable floorplan page
type SheetConfig struct {
	Title       string
	Subtitle    string
	Image       []byte // jpeg, png or gif; other formats are re-encoded as png
	ImageWidth  int
	ImageHeight int
	Markers     []Marker
	Link        string // encoded in the QR code, e.g. the location URL
}

// GenerateFloorPlanSheet renders the floorplan with its markers and a QR code
func GenerateFloorPlanSheet(cfg SheetConfig) ([]byte, error) {
	if len(cfg.Image) == 0 {
		return nil, fmt.Errorf("floorplan image is empty")
	}
	imgData, imgType, err := pdfImage(cfg.Image)
	if err != nil {
		return nil, err
	}
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		c, _, err := image.DecodeConfig(bytes.NewReader(imgData))
		if err != nil {
			return nil, fmt.Errorf("reading image size: %w", err)
		}
		cfg.ImageWidth, cfg.ImageHeight = c.Width, c.Height
	}

	orientation := "P"
	pageWidth, pageHeight := 210.0, 297.0
	if cfg.ImageWidth > cfg.ImageHeight {
		orientation = "L"
		pageWidth, pageHeight = pageHeight, pageWidth
	}
	const margin = 10.0
	const header = 18.0
	const footer = 32.0

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 14)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageWidth-2*margin, 7, cfg.Title, "", 1, "L", false, 0, "")
	if cfg.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(pageWidth-2*margin, 5, cfg.Subtitle, "", 1, "L", false, 0, "")
	}

	// Floorplan, scaled to fit between header and footer
	boxW := pageWidth - 2*margin
	boxH := pageHeight - 2*margin - header - footer
	scale := boxW / float64(cfg.ImageWidth)
	if s := boxH / float64(cfg.ImageHeight); s < scale {
		scale = s
	}
	drawW := float64(cfg.ImageWidth) * scale
	drawH := float64(cfg.ImageHeight) * scale
	imgX := margin + (boxW-drawW)/2
	imgY := margin + header

	opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: false}
	pdf.RegisterImageOptionsReader("floorplan", opts, bytes.NewReader(imgData))
	pdf.ImageOptions("floorplan", imgX, imgY, drawW, drawH, false, opts, 0, "")
	pdf.SetDrawColor(160, 160, 160)
	pdf.Rect(imgX, imgY, drawW, drawH, "D")

	// Markers
	pdf.SetFont("Arial", "", 7)
	for _, m := range cfg.Markers {
		if m.X < 0 || m.Y < 0 || m.X > float64(cfg.ImageWidth) || m.Y > float64(cfg.ImageHeight) {
			continue
		}
		x := imgX + m.X*scale
		y := imgY + m.Y*scale
		pdf.SetFillColor(220, 38, 38)
		pdf.Circle(x, y, 1.5, "F")
		if m.Label != "" {
			pdf.SetXY(x+2, y-2)
			pdf.CellFormat(40, 4, m.Label, "", 0, "L", false, 0, "")
		}
	}

	// QR code linking back to the location
	if cfg.Link != "" {
		qrPng, err := qrcode.Encode(cfg.Link, qrcode.Low, 256)
		if err != nil {
			return nil, err
		}
		qrOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("qr", qrOpts, bytes.NewReader(qrPng))
		qrSize := footer - 6
		qrX := pageWidth - margin - qrSize
		qrY := pageHeight - margin - qrSize
		pdf.ImageOptions("qr", qrX, qrY, qrSize, qrSize, false, qrOpts, 0, "")

		pdf.SetFont("Arial", "", 7)
		pdf.SetXY(margin, pageHeight-margin-5)
		pdf.CellFormat(qrX-margin-2, 5, cfg.Link, "", 0, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfImage returns data in a format gofpdf can embed
func pdfImage(data []byte) ([]byte, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding floorplan image: %w", err)
	}
	switch format {
	case "jpeg":
		return data, "JPG", nil
	case "png", "gif":
		return data, strings.ToUpper(format), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding floorplan image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "PNG", nil
}
