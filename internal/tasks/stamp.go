package tasks

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

const stampFileName = "stamp.txt"

// stampDesc places the stamp near the top-right corner of every page.
const stampDesc = "points:10, pos:tr, off:-24 -24, fillc:#000000, rot:0, scale:1 abs"

// StampGroup returns the PDF stamping group.
func StampGroup() *Group {
	return NewGroup("stamp", nil,
		NewFunc("stamp_pdfs", "Stamp every PDF in a directory with name, reg no and date", stampPDFs),
	)
}

// stampPDFs stamps every *.pdf under input_dir into output_dir. Identity
// kwargs missing from the step fall back to a stamp.txt (NAME=, REG_NO=)
// next to the input files.
func stampPDFs(_ context.Context, in Input) (any, error) {
	inputDir, ok := in.GetString("input_dir")
	if !ok || inputDir == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "stamp_pdfs requires an input_dir kwarg")
	}
	outputDir, ok := in.GetString("output_dir")
	if !ok || outputDir == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "stamp_pdfs requires an output_dir kwarg")
	}

	name, _ := in.GetString("name")
	regNo, _ := in.GetString("reg_no")
	if name == "" || regNo == "" {
		fileName, fileRegNo := readStampFile(inputDir)
		if name == "" {
			name = fileName
		}
		if regNo == "" {
			regNo = fileRegNo
		}
	}
	if name == "" || regNo == "" {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"stamp identity incomplete: provide name and reg_no kwargs or a %s in %s",
			stampFileName, inputDir)
	}

	pdfs, err := filepath.Glob(filepath.Join(inputDir, "*.pdf"))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("%s\n%s\n%s", name, regNo, time.Now().Format("02.01.2006"))
	wm, err := pdfapi.TextWatermark(text, stampDesc, true, false, types.POINTS)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
			"build stamp watermark: %s", err.Error()).WithCause(err)
	}

	stamped := 0
	for _, src := range pdfs {
		dst := filepath.Join(outputDir, filepath.Base(src))
		if err := pdfapi.AddWatermarksFile(src, dst, nil, wm, nil); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
				"stamp %s: %s", filepath.Base(src), err.Error()).WithCause(err)
		}
		stamped++
	}

	return map[string]any{
		"stamped_count": stamped,
		"output_dir":    outputDir,
	}, nil
}

// readStampFile parses NAME= and REG_NO= lines from stamp.txt under root.
func readStampFile(root string) (name, regNo string) {
	f, err := os.Open(filepath.Join(root, stampFileName))
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "NAME":
			name = strings.TrimSpace(val)
		case "REG_NO":
			regNo = strings.TrimSpace(val)
		}
	}
	return name, regNo
}
