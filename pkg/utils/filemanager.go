// =============================================================================
// RPS Batch Decoder - File Manager Utility
// =============================================================================
//
// File management for the batch inbox:
//   - Batch file discovery
//   - Archival of decoded inputs
//   - Quarantine of failed inputs with an error log
//   - Run summaries
//
// ARCHIVAL STRATEGY:
//   - Inputs that decoded and reported successfully move to input_archive
//   - Inputs that failed move to error_dir next to a <name>.error.txt log
//   - A name already taken in the target directory gets a numeric suffix,
//     so a re-delivered file never overwrites an archived one
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles inbox file operations.
type FileManager struct {
	// InputDir is the inbox scanned for batch files.
	InputDir string

	// OutputDir receives the reports.
	OutputDir string

	// InputArchiveDir receives inputs after a successful run.
	InputArchiveDir string

	// ErrorDir receives inputs that failed.
	ErrorDir string

	// UseTimestampSubdirs files archives under YYYY/MM/DD.
	// Example: input_archive/2025/08/01/lote.txt
	UseTimestampSubdirs bool

	now func() time.Time
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, errorDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		ErrorDir:        errorDir,
		now:             time.Now,
	}
}

// EnsureDirectories creates every directory that does not exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.ErrorDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the regular files in the inbox matching pattern,
// sorted by name. Hidden files and partial uploads (*.part, *.tmp) are skipped.
//
// PARAMETERS:
//   - pattern: A glob such as "*.txt". Empty matches every file.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	matches, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, path := range matches {
		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") || isPartial(name) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func isPartial(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".part" || ext == ".tmp"
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a decoded input into the archive and returns its
// new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	return fm.moveInto(fm.InputArchiveDir, filePath)
}

// QuarantineInputFile moves a failed input into the error directory and
// writes <name>.error.txt beside it.
//
// RETURNS:
//   - The new path of the input.
//   - An error if the move or the log write fails.
func (fm *FileManager) QuarantineInputFile(filePath string, entries []ErrorLogEntry) (string, error) {
	dest, err := fm.moveInto(fm.ErrorDir, filePath)
	if err != nil {
		return "", err
	}
	if _, err := WriteErrorLog(entries, dest+".error.txt"); err != nil {
		return dest, err
	}
	return dest, nil
}

func (fm *FileManager) moveInto(dir, filePath string) (string, error) {
	target := fm.getArchivePath(dir, filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	target = uniquePath(target)

	if err := os.Rename(filePath, target); err != nil {
		// Cross-device rename: copy then delete.
		if err := copyFile(filePath, target); err != nil {
			return "", fmt.Errorf("failed to copy file to %s: %w", dir, err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return target, nil
}

// getArchivePath constructs the target path for a file inside archiveDir.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}
	return filepath.Join(archiveDir, fileName)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// uniquePath returns path, or path with a -N suffix before the extension
// when path already exists.
func uniquePath(path string) string {
	if !FileExists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !FileExists(candidate) {
			return candidate
		}
	}
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one problem recorded for a failed input.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	LineNumber   int
	FieldName    string
}

// WriteErrorLog writes entries to logPath.
//
// RETURNS:
//   - logPath, or "" when there was nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, logPath string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "RPS Batch Decoder - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"), len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)
		if entry.LineNumber > 0 {
			fmt.Fprintf(writer, "  Line:       %d\n", entry.LineNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		writer.WriteString("\n")
	}
	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one inbox run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalReceipts   int
	TotalWarnings   int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a file that decoded successfully.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFiles []string
	ArchivePath string
	Family      string
	State       string
	Receipts    int
	Warnings    int
	ProcessTime time.Duration
}

// FailedFileInfo describes a file that failed.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes summary to processing_summary_<timestamp>.txt in
// outputDir and returns its path.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "RPS Batch Decoder - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Receipts: %d\n"+
		"  Total Warnings: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalReceipts,
		summary.TotalWarnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Family:       %s\n", pf.Family)
			fmt.Fprintf(writer, "  State:        %s\n", pf.State)
			fmt.Fprintf(writer, "  Outputs:      %s\n", strings.Join(pf.OutputFiles, ", "))
			fmt.Fprintf(writer, "  Receipts:     %d\n", pf.Receipts)
			fmt.Fprintf(writer, "  Warnings:     %d\n", pf.Warnings)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
