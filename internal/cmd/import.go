package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/gdi-labs/importkit/internal/client"
	"github.com/gdi-labs/importkit/internal/common"
	"github.com/gdi-labs/importkit/internal/export"
	"github.com/gdi-labs/importkit/internal/mapping"
	"github.com/gdi-labs/importkit/internal/operation"
	"github.com/gdi-labs/importkit/internal/presets"
	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
	"github.com/gdi-labs/importkit/internal/sheets"
	"github.com/gdi-labs/importkit/internal/workflow"
)

var (
	importPreset      string
	importContextFile string
	importPresetsFile string
	importOutput      string
	importAssumeYes   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Run one import session against the extraction backend",
	Long: `Import a tabular file through the extraction backend.

The extraction context comes from a preset (see 'importctl presets') or
from a JSON file given with --context. The flattened output is written to
--output; the extension picks the format (.json, .csv or .xlsx).`,
	Example: `  # Import a contact list with the built-in preset
  importctl import contacts.csv --preset contacts --output out.json

  # Multi-sheet workbook with a custom context, exported as XLSX
  importctl import books.xlsx --context ctx.json --output out.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importPreset, "preset", "p", "contacts", "preset id providing the extraction context")
	importCmd.Flags().StringVarP(&importContextFile, "context", "c", "", "JSON file with an extraction context (overrides --preset)")
	importCmd.Flags().StringVar(&importPresetsFile, "presets-file", "", "JSON file with additional presets")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "import-output.json", "output path (.json, .csv or .xlsx)")
	importCmd.Flags().BoolVarP(&importAssumeYes, "yes", "y", false, "accept proposed mappings without the review loop")
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ec, err := resolveContext()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.NewClient(cfg.API, logger)
	wf := workflow.New(c, sheets.NewInspector(logger), ec, logger, workflow.Options{
		Poll:       cfg.Poll,
		OnProgress: printProgress,
	})
	go func() {
		<-ctx.Done()
		wf.Abort(context.Background())
	}()

	if err := wf.SelectFile(ctx, workflow.FromPath(args[0])); err != nil {
		return reportFailure(wf, err)
	}

	if wf.State() == workflow.StateSelectingSheet {
		if err := chooseSheet(ctx, wf); err != nil {
			return reportFailure(wf, err)
		}
		if wf.State() == workflow.StateIdle {
			fmt.Println("Import cancelled.")
			return nil
		}
	}

	if wf.State() != workflow.StateResults {
		return reportFailure(wf, nil)
	}

	if err := reviewLoop(wf); err != nil {
		return err
	}
	if wf.State() == workflow.StateIdle {
		fmt.Println("Import cancelled.")
		return nil
	}

	outcome, err := wf.Confirm()
	if err != nil {
		return err
	}
	if err := writeOutput(outcome, ec); err != nil {
		return err
	}
	fmt.Printf("Imported %d rows -> %s\n", outcome.Output.Metadata.TotalItems, importOutput)
	return nil
}

// resolveContext loads the extraction context from --context or a preset.
func resolveContext() (schema.ExtractionContext, error) {
	if importContextFile != "" {
		raw, err := os.ReadFile(importContextFile)
		if err != nil {
			return schema.ExtractionContext{}, fmt.Errorf("read context file: %w", err)
		}
		var ec schema.ExtractionContext
		if err := json.Unmarshal(raw, &ec); err != nil {
			return schema.ExtractionContext{}, fmt.Errorf("decode context file: %w", err)
		}
		if err := schema.ValidateContext(ec); err != nil {
			return schema.ExtractionContext{}, err
		}
		return ec, nil
	}

	sets := [][]presets.Preset{presets.Builtin()}
	if importPresetsFile != "" {
		extra, err := presets.LoadFile(importPresetsFile)
		if err != nil {
			return schema.ExtractionContext{}, err
		}
		sets = append(sets, extra)
	}
	p, ok := presets.Find(importPreset, sets...)
	if !ok {
		return schema.ExtractionContext{}, fmt.Errorf("unknown preset %q (see 'importctl presets')", importPreset)
	}
	return p.Context, nil
}

func printProgress(st operation.Status) {
	if p, ok := st.(operation.Processing); ok {
		fmt.Printf("  [%3d%%] %s %s\n", p.Progress.PercentComplete, p.Progress.Phase, p.Progress.Message)
	}
}

func reportFailure(wf *workflow.Session, err error) error {
	if lastErr := wf.LastError(); lastErr != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %s\n", lastErr.Message)
		_ = wf.DismissError()
		return lastErr
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("import ended in unexpected state %q", wf.State())
}

// chooseSheet prompts for one of the workbook's visible sheets.
func chooseSheet(ctx context.Context, wf *workflow.Session) error {
	inspection, _ := wf.Inspection()
	items := make([]string, 0, len(inspection.VisibleSheets))
	for _, s := range inspection.VisibleSheets {
		label := s.Name
		if s.RowEstimate > 0 {
			label = fmt.Sprintf("%s (%d rows)", s.Name, s.RowEstimate)
		}
		items = append(items, label)
	}

	if importAssumeYes {
		return wf.ChooseSheet(ctx, inspection.VisibleSheets[0].Name)
	}

	selectPrompt := promptui.Select{
		Label: "Select a sheet to import",
		Items: items,
		Size:  len(items),
	}
	index, _, err := selectPrompt.Run()
	if err != nil {
		return wf.CancelSheetSelection()
	}
	return wf.ChooseSheet(ctx, inspection.VisibleSheets[index].Name)
}

// reviewLoop lets the user adjust mappings and overrides until the
// confirm gate opens and they confirm, or they cancel.
func reviewLoop(wf *workflow.Session) error {
	if importAssumeYes {
		return nil
	}

	for {
		printReview(wf)

		gate := wf.ConfirmState()
		confirmLabel := "Confirm import"
		if !gate.Enabled {
			confirmLabel = "Confirm import (blocked: " + strings.Join(gate.UnmetRequiredFields, ", ") + ")"
		}
		menu := promptui.Select{
			Label: "Review",
			Items: []string{confirmLabel, "Edit a column mapping", "Override an extracted value", "Cancel import"},
			Size:  4,
		}
		choice, _, err := menu.Run()
		if err != nil {
			return wf.CancelReview()
		}

		switch choice {
		case 0:
			if !gate.Enabled {
				fmt.Println(gate.Tooltip)
				continue
			}
			return nil
		case 1:
			if err := editMapping(wf); err != nil {
				fmt.Println(err)
			}
		case 2:
			if err := editOverride(wf); err != nil {
				fmt.Println(err)
			}
		case 3:
			return wf.CancelReview()
		}
	}
}

func printReview(wf *workflow.Session) {
	result, _ := wf.Result()
	groups := results.OrganizeColumns(result)
	mappings := wf.MappingState().Mappings()

	fmt.Printf("\n%d rows extracted\n", len(result.Rows))
	fmt.Println("Column mappings:")
	for _, col := range results.AllSourceColumns(result) {
		entry := mappings.Direct[col]
		target := entry.TargetField
		if target == "" {
			target = "(unmapped)"
		}
		marker := ""
		if entry.IsUserModified {
			marker = " *"
		}
		fmt.Printf("  %-24s -> %s%s\n", col, target, marker)
	}
	if len(groups.Compound) > 0 && len(result.Rows) > 0 {
		fmt.Println("Compound extractions (first row):")
		for _, col := range groups.Compound {
			for _, ex := range result.Rows[0].Compound[col].Extractions {
				fmt.Printf("  %s -> %s = %v  [%s]\n",
					col, ex.TargetField, ex.ExtractedValue, results.ConfidenceLabel(ex.Confidence.Value))
			}
		}
	}
}

func editMapping(wf *workflow.Session) error {
	result, _ := wf.Result()
	cols := results.AllSourceColumns(result)
	colPrompt := promptui.Select{Label: "Source column", Items: cols, Size: len(cols)}
	colIdx, _, err := colPrompt.Run()
	if err != nil {
		return nil
	}
	col := cols[colIdx]

	available := mapping.AvailableFields(wf.Context().Fields, wf.MappingState().Mappings(), col)
	items := []string{"(none)"}
	for _, f := range available {
		items = append(items, f.Field)
	}
	fieldPrompt := promptui.Select{Label: "Target field for " + col, Items: items, Size: len(items)}
	fieldIdx, _, err := fieldPrompt.Run()
	if err != nil {
		return nil
	}

	target := ""
	if fieldIdx > 0 {
		target = available[fieldIdx-1].Field
	}
	wf.MappingState().SetDirectMapping(col, target)
	return nil
}

func editOverride(wf *workflow.Session) error {
	result, _ := wf.Result()
	groups := results.OrganizeColumns(result)
	if len(groups.Compound) == 0 {
		return fmt.Errorf("this result has no compound extractions to override")
	}

	colPrompt := promptui.Select{Label: "Compound column", Items: groups.Compound, Size: len(groups.Compound)}
	colIdx, _, err := colPrompt.Run()
	if err != nil {
		return nil
	}
	col := groups.Compound[colIdx]

	extractions := result.Rows[0].Compound[col].Extractions
	fields := make([]string, 0, len(extractions))
	for _, ex := range extractions {
		fields = append(fields, ex.TargetField)
	}
	fieldPrompt := promptui.Select{Label: "Target field", Items: fields, Size: len(fields)}
	fieldIdx, _, err := fieldPrompt.Run()
	if err != nil {
		return nil
	}

	rowPrompt := promptui.Prompt{
		Label: fmt.Sprintf("Row index (0-%d)", len(result.Rows)-1),
		Validate: func(input string) error {
			n, convErr := strconv.Atoi(input)
			if convErr != nil || n < 0 || n >= len(result.Rows) {
				return fmt.Errorf("enter a row index between 0 and %d", len(result.Rows)-1)
			}
			return nil
		},
	}
	rowStr, err := rowPrompt.Run()
	if err != nil {
		return nil
	}
	row, _ := strconv.Atoi(rowStr)

	valuePrompt := promptui.Prompt{Label: "New value (empty clears the cell)"}
	value, err := valuePrompt.Run()
	if err != nil {
		return nil
	}

	var override any
	if value != "" {
		override = value
	}
	wf.MappingState().SetCompoundOverride(row, col, fields[fieldIdx], override)
	return nil
}

// writeOutput renders the outcome in the format implied by the output
// extension.
func writeOutput(outcome workflow.Outcome, ec schema.ExtractionContext) error {
	fieldOrder := make([]string, 0, len(ec.Fields))
	for _, f := range ec.Fields {
		fieldOrder = append(fieldOrder, f.Field)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(importOutput)) {
	case ".xlsx":
		data, err = export.WriteXLSX(outcome.Output, fieldOrder)
	case ".csv":
		data, err = export.WriteCSV(outcome.Output, fieldOrder)
	default:
		data, err = json.MarshalIndent(outcome.Output, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(importOutput, data, 0o644)
}
