package transport

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const crlf = "\r\n"

const defaultFileContentType = "application/octet-stream"

// FormFile is a file entry of a [Form].
type FormFile struct {
	Name    string
	Content []byte
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	FormFile
}

// Form is a multipart/form-data body built field by field.
type Form struct {
	fields []formField
	files  []formFile

	boundary func() string
}

// NewForm builds a form from entries whose values are either a string or a
// [FormFile]. Entries are added in key order.
func NewForm(entries map[string]any) (*Form, error) {
	f := &Form{}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		switch v := entries[k].(type) {
		case string:
			f.AddField(k, v)
		case FormFile:
			f.AddFile(k, v.Name, v.Content)
		default:
			return nil, fmt.Errorf("field %q has type %T: %w", k, v, ErrInvalidFieldShape)
		}
	}
	return f, nil
}

// AddField adds a plain named value.
func (f *Form) AddField(name, value string) {
	f.fields = append(f.fields, formField{name: name, value: value})
}

// AddFile adds a file upload under field name.
func (f *Form) AddFile(name, filename string, content []byte) {
	f.files = append(f.files, formFile{
		field:    name,
		FormFile: FormFile{Name: filename, Content: content},
	})
}

// Encode renders the form and returns its content type, boundary included.
// Plain fields come first, then files, each in the order they were added.
func (f *Form) Encode() (string, []byte) {
	boundary := f.newBoundary()
	delim := "--" + boundary

	var buf bytes.Buffer
	needsCRLF := false
	for _, field := range f.fields {
		if needsCRLF {
			buf.WriteString(crlf)
		}
		needsCRLF = true
		buf.WriteString(strings.Join([]string{
			delim,
			fmt.Sprintf(`content-disposition: form-data; name="%s"`, field.name),
			"",
			field.value,
		}, crlf))
	}
	for _, file := range f.files {
		if needsCRLF {
			buf.WriteString(crlf)
		}
		needsCRLF = true
		buf.WriteString(strings.Join([]string{
			delim,
			fmt.Sprintf(`content-disposition: form-data; name="%s"; filename="%s"`, file.field, file.Name),
			"content-type: " + guessContentType(file.Name),
			"",
		}, crlf))
		buf.WriteString(crlf)
		buf.Write(file.Content)
	}
	buf.WriteString(crlf + delim + "--" + crlf)

	return "multipart/form-data; boundary=" + boundary, buf.Bytes()
}

func (f *Form) newBoundary() string {
	if f.boundary != nil {
		return f.boundary()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func guessContentType(filename string) string {
	t := mime.TypeByExtension(filepath.Ext(filename))
	if t == "" {
		return defaultFileContentType
	}
	// mime adds charset parameters for text types; only the media type is
	// sent per part.
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
