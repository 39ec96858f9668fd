// Package catalog carga las referencias de bicicletas del catálogo del proveedor
// (CSV local o descargado) para el filtrado de órdenes.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// columnas aceptadas para la referencia, por orden de preferencia
var referenceColumns = []string{"Referencia", "Reference", "referencia"}

const sniffSize = 1024

// ErrMissingColumn indica que la cabecera no tiene ninguna columna de referencia.
var ErrMissingColumn = errors.New("catalog: reference column not found in header")

// Parsed es el resultado de leer un CSV de catálogo.
type Parsed struct {
	References []string // únicas, en orden de aparición, sin espacios en los extremos
	Rows       int      // filas de datos leídas (sin cabecera)
	Skipped    int      // filas ilegibles
}

// ParseCSV detecta el separador (';' si aparece más que ',' en el primer KiB), busca la
// columna de referencia y devuelve las referencias no vacías. Las mayúsculas se respetan.
func ParseCSV(r io.Reader) (Parsed, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	sample, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Parsed{}, fmt.Errorf("catalog: read: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(sample)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Parsed{}, ErrMissingColumn
		}
		return Parsed{}, fmt.Errorf("catalog: header: %w", err)
	}
	col := referenceColumn(header)
	if col < 0 {
		return Parsed{}, fmt.Errorf("%w (header: %s)", ErrMissingColumn, strings.Join(header, ","))
	}

	parsed := Parsed{References: make([]string, 0)}
	seen := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				parsed.Rows++
				parsed.Skipped++
				continue
			}
			return Parsed{}, fmt.Errorf("catalog: read row: %w", err)
		}
		parsed.Rows++

		if col >= len(record) {
			continue
		}
		ref := strings.TrimSpace(record[col])
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		parsed.References = append(parsed.References, ref)
	}
	return parsed, nil
}

func sniffDelimiter(sample []byte) rune {
	if bytes.Count(sample, []byte(";")) > bytes.Count(sample, []byte(",")) {
		return ';'
	}
	return ','
}

func referenceColumn(header []string) int {
	clean := make([]string, len(header))
	for i, h := range header {
		// BOM de Excel en la primera columna
		clean[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, name := range referenceColumns {
		for i, h := range clean {
			if h == name {
				return i
			}
		}
	}
	return -1
}
