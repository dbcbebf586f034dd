package rfc822

import "io"

// ParseHeader parses a single RFC822-style header block (up to the first
// blank line or EOF) using a fresh Parser.
func ParseHeader(r io.Reader) (Header, error) {
	return NewParser().ParseHeader(r)
}

// ParseHeader parses a single RFC822-style header block from r, stopping
// after the first record. Release files and similar single-stanza documents
// carry only one.
func (p *Parser) ParseHeader(r io.Reader) (Header, error) {
	for record, err := range p.ParseRecords(r) {
		if err != nil {
			return nil, err
		}
		return record, nil
	}
	return Header{}, nil
}
