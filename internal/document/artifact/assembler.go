// Package artifact lays out the printable byte representation of an issued
// document: a fixed header, the holder fields in insertion order, the
// embedded scannable verification image, and a per-type watermark border.
//
// Assembly is deterministic for identical metadata. The one exception is the
// scannable image bytes, which the Imaging collaborator may encode
// differently between runs as long as they decode back to the same payload.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"veridoc/internal/document/models"
)

// ErrAssembly wraps failures to produce an artifact: missing templates or an
// unavailable imaging backend. Callers surface it as-is; it is fatal for the
// request and never retried here.
var ErrAssembly = errors.New("artifact assembly failed")

// Imaging renders a payload string into a scannable 2D image. Implemented by
// an external collaborator; the core never renders pixels itself.
type Imaging interface {
	RenderScannableImage(ctx context.Context, payload string) ([]byte, error)
}

// watermarkTemplates holds the repeated border motif per document type. A
// type missing here cannot be assembled even if metadata exists for it.
var watermarkTemplates = map[models.DocumentType]string{
	models.TypeBirthCertificate:    "BIRTH*RECORD*",
	models.TypeDeathCertificate:    "DEATH*RECORD*",
	models.TypeMarriageCertificate: "MARRIAGE*RECORD*",
	models.TypePassport:            "PASSPORT*",
	models.TypeIdentityCard:        "IDENTITY*",
	models.TypeWorkPermit:          "PERMIT*",
}

const (
	lineWidth     = 72
	sectionMarker = "----8<----"
)

// Assembler produces artifact bytes from document metadata.
type Assembler struct {
	imaging Imaging
}

// New constructs an Assembler around an imaging collaborator.
func New(imaging Imaging) *Assembler {
	return &Assembler{imaging: imaging}
}

// Assemble renders the full artifact for the given metadata.
func (a *Assembler) Assemble(ctx context.Context, md models.DocumentMetadata) ([]byte, error) {
	watermark, ok := watermarkTemplates[md.DocumentType]
	if !ok {
		return nil, fmt.Errorf("%w: no watermark template for document type %q", ErrAssembly, md.DocumentType)
	}

	image, err := a.imaging.RenderScannableImage(ctx, md.VerificationPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: render scannable image: %v", ErrAssembly, err)
	}

	var buf bytes.Buffer
	writeBorder(&buf, watermark)
	writeHeader(&buf, md)
	writeHolderFields(&buf, md.HolderFields)
	writeVerificationBlock(&buf, md, image)
	writeBorder(&buf, watermark)

	return buf.Bytes(), nil
}

func writeBorder(buf *bytes.Buffer, watermark string) {
	repeated := strings.Repeat(watermark, lineWidth/len(watermark)+1)
	buf.WriteString(repeated[:lineWidth])
	buf.WriteByte('\n')
}

func writeHeader(buf *bytes.Buffer, md models.DocumentMetadata) {
	typeName := strings.ToUpper(strings.ReplaceAll(string(md.DocumentType), "_", " "))
	fmt.Fprintf(buf, "%s\n", center(typeName))
	fmt.Fprintf(buf, "%s\n", center("OFFICIAL DOCUMENT"))
	buf.WriteString(sectionMarker + "\n")
	fmt.Fprintf(buf, "Reference : %s\n", md.ReferenceNumber)
	fmt.Fprintf(buf, "Issued    : %s\n", md.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(buf, "Valid To  : %s\n", md.ValidUntil.UTC().Format(time.RFC3339))
	buf.WriteString(sectionMarker + "\n")
}

// writeHolderFields renders fields in insertion order; the canonical hash
// sorts independently so display order here is free to follow the request.
func writeHolderFields(buf *bytes.Buffer, fields models.HolderFields) {
	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	for _, f := range fields {
		fmt.Fprintf(buf, "%-*s : %s\n", width, f.Name, f.Value)
	}
	buf.WriteString(sectionMarker + "\n")
}

func writeVerificationBlock(buf *bytes.Buffer, md models.DocumentMetadata, image []byte) {
	fmt.Fprintf(buf, "Integrity : %s\n", md.ContentHash)
	fmt.Fprintf(buf, "Payload   : %s\n", md.VerificationPayload)
	fmt.Fprintf(buf, "ScanImage : %d bytes\n", len(image))
	buf.Write(image)
	buf.WriteByte('\n')
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	pad := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
