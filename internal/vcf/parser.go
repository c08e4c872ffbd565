package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads records from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from the #CHROM header line
}

// NewParser creates a parser for the given file. Plain and gzipped
// (bgzip or gzip) VCFs are both supported.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file}

	// Sniff for the gzip magic number (0x1f, 0x8b).
	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g. stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads and stores the VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
	}

	return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
}

// Next reads the next record. Returns nil, nil at end of file.
func (p *Parser) Next() (*Record, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return nil, nil
			}
			// Final line without trailing newline.
		} else {
			return nil, fmt.Errorf("read record line: %w", err)
		}
	}
	p.lineNumber++

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err == io.EOF {
			return nil, nil
		}
		return p.Next() // skip empty lines
	}

	return p.parseLine(line)
}

// ReadAll reads every remaining record.
func (p *Parser) ReadAll() ([]*Record, error) {
	var records []*Record
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, rec)
	}
}

// parseLine parses a single VCF data line into a Record.
func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	rec := &Record{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   fields[5],
		Filter: fields[6],
	}
	parseInfo(rec, fields[7])

	if len(fields) > 8 {
		rec.Format = fields[8]
		rec.Samples = fields[9:]
	}

	return rec, nil
}

// parseInfo splits the INFO column into ordered key/value pairs.
func parseInfo(rec *Record, info string) {
	if info == "." {
		return
	}
	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			rec.SetInfo(parts[0], parts[1])
		} else {
			// Flag-type INFO field.
			rec.SetInfo(parts[0], "")
		}
	}
}

// Header returns the VCF header lines, including the #CHROM line.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns the sample names from the #CHROM header line.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// SingleSample returns the name of the one sample the VCF carries.
// Multi-sample and sample-less files are an input-integrity failure.
func (p *Parser) SingleSample() (string, error) {
	if len(p.sampleNames) != 1 {
		return "", fmt.Errorf("expected exactly one sample in VCF, found %d: %v",
			len(p.sampleNames), p.sampleNames)
	}
	return p.sampleNames[0], nil
}

// CSQFields returns the VEP annotation sub-field names declared in the
// ##INFO=<ID=CSQ,...> header line's "Format: a|b|c" description. These
// are the fields +split-vep expands and the sink strips again.
func (p *Parser) CSQFields() ([]string, error) {
	for _, line := range p.header {
		if !strings.HasPrefix(line, "##INFO=<ID=CSQ,") {
			continue
		}
		_, after, found := strings.Cut(line, "Format: ")
		if !found {
			return nil, fmt.Errorf("CSQ header line has no Format description: %s", line)
		}
		after = strings.TrimRight(after, "\">")
		return strings.Split(after, "|"), nil
	}
	return nil, fmt.Errorf("no CSQ INFO line found in VCF header")
}

// LineNumber returns the number of lines read so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and the underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
