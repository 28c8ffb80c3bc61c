// Package pdftest builds tiny valid PDF files for tests, in the spirit of
// net/http/httptest. The generated documents have real page objects and
// content streams but no text, fonts or images.
package pdftest

import (
	"bytes"
	"fmt"
)

// Sample returns a syntactically valid PDF with n blank pages. It panics if
// n < 1; tests construct fixtures with known page counts.
func Sample(n int) []byte {
	if n < 1 {
		panic(fmt.Sprintf("pdftest: invalid page count %d", n))
	}

	// Object numbering: 1 catalog, 2 page tree, 3..2+n pages, 3+n..2+2n
	// content streams.
	var buf bytes.Buffer
	offsets := make([]int, 2+2*n+1) // index 0 unused

	buf.WriteString("%PDF-1.4\n")

	offsets[1] = buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [")
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteString(" ")
		}
		fmt.Fprintf(&buf, "%d 0 R", 3+i)
	}
	fmt.Fprintf(&buf, "] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n", n)

	for i := 0; i < n; i++ {
		pageObj := 3 + i
		contentObj := 3 + n + i
		offsets[pageObj] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << >> /Contents %d 0 R >>\nendobj\n", pageObj, contentObj)
	}

	// Each page gets a trivial content stream so readers that insist on
	// dereferencing /Contents find a real stream.
	for i := 0; i < n; i++ {
		contentObj := 3 + n + i
		offsets[contentObj] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length 3 >>\nstream\nq Q\nendstream\nendobj\n", contentObj)
	}

	objCount := 2 + 2*n
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= objCount; i++ {
		fmt.Fprintf(&buf, "%010d %05d n \n", offsets[i], 0)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefOffset)

	return buf.Bytes()
}
