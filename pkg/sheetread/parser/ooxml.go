package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
)

// newXMLDecoder returns a decoder that also accepts non UTF-8 encodings
// declared in the XML prolog.
func newXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder
}

// readZipFile returns the contents of the named entry, or nil when the
// archive has no such entry.
func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, nil
}

// sheetState is a <sheet> entry of xl/workbook.xml.
type sheetState struct {
	name  string
	state string
}

// parseWorkbookSheets lists the sheets of xl/workbook.xml in declaration
// order together with their state attribute.
func parseWorkbookSheets(data []byte) []sheetState {
	var result []sheetState
	decoder := newXMLDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var s sheetState
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					s.name = attr.Value
				case "state":
					s.state = attr.Value
				}
			}
			if s.name != "" {
				result = append(result, s)
			}
		}
	}

	return result
}

// parseRelationships maps relationship ids to the part names they target.
// Relative targets are resolved against dir.
func parseRelationships(data []byte, dir string) map[string]string {
	targets := make(map[string]string)
	decoder := newXMLDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "Id":
				id = attr.Value
			case "Target":
				target = attr.Value
			}
		}
		if id == "" || target == "" {
			continue
		}
		if strings.HasPrefix(target, "/") {
			targets[id] = strings.TrimPrefix(target, "/")
		} else {
			targets[id] = path.Join(dir, target)
		}
	}
	return targets
}

// visibilityFromState maps an OOXML sheet state attribute.
func visibilityFromState(state string) Visibility {
	switch strings.ToLower(state) {
	case "hidden":
		return Hidden
	case "veryhidden":
		return VeryHidden
	}
	return Visible
}

// corePropertyNames maps docProps/core.xml elements to property keys.
var corePropertyNames = map[string]string{
	"title":          "title",
	"subject":        "subject",
	"creator":        "creator",
	"keywords":       "keywords",
	"description":    "description",
	"lastModifiedBy": "last_modified_by",
	"category":       "category",
	"created":        "created",
	"modified":       "modified",
}

// parseCoreProps reads the Dublin Core properties of docProps/core.xml.
func parseCoreProps(data []byte) map[string]string {
	props := make(map[string]string)
	decoder := newXMLDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		key, ok := corePropertyNames[se.Name.Local]
		if !ok {
			continue
		}
		text, err := readElementText(decoder)
		if err != nil {
			break
		}
		if text = strings.TrimSpace(text); text != "" {
			props[key] = text
		}
	}

	return props
}

// readElementText collects the character data up to the end of the current
// element, descending into children.
func readElementText(decoder *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return sb.String(), err
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return sb.String(), nil
}
