// Package xmlmeta provides typed accessors the Leica vendor decoder
// uses to read an SCN document's collection of images and pyramid
// dimensions. No SQLite or DICOM adapter is built here — no vendor in
// this module needs one.
package xmlmeta

import (
	"encoding/xml"
	"fmt"
)

// LeicaNamespace is the XML namespace every valid Leica SCN document
// declares on its root <scn> element.
const LeicaNamespace = "http://www.leica-microsystems.com/scn/2010/10/01"

// Dimension is one <pixels><dimension> entry: a pyramid level's pixel
// extent within one <image>.
type Dimension struct {
	IFD    int `xml:"ifd,attr"`
	SizeX  int `xml:"sizeX,attr"`
	SizeY  int `xml:"sizeY,attr"`
	Z      int `xml:"z,attr"`
}

// View is an <image>'s physical placement on the canvas, in clicks.
type View struct {
	SizeX   int `xml:"sizeX,attr"`
	SizeY   int `xml:"sizeY,attr"`
	OffsetX int `xml:"offsetX,attr"`
	OffsetY int `xml:"offsetY,attr"`
}

// Device identifies the scanner model/firmware that produced the scan.
type Device struct {
	Model   string `xml:"model,attr"`
	Version string `xml:"version,attr"`
}

// IlluminationSettings carries the light source used for this image.
type IlluminationSettings struct {
	IlluminationSource string `xml:"illuminationSource"`
}

// ScanSettings carries the optics metadata for one scanned image.
type ScanSettings struct {
	IlluminationSettings IlluminationSettings `xml:"illuminationSettings"`
	NumericalAperture    string               `xml:"numericalAperture"`
	ObjectiveSettings    struct {
		Objective string `xml:"objective"`
	} `xml:"objectiveSettings"`
}

// Pixels wraps one <image>'s dimension list.
type Pixels struct {
	Dimensions []Dimension `xml:"dimension"`
}

// Image is one <collection><image> entry.
type Image struct {
	CreationDate string       `xml:"creationDate"`
	Device       Device       `xml:"device"`
	ScanSettings ScanSettings `xml:"scanSettings"`
	View         View         `xml:"view"`
	Pixels       Pixels       `xml:"pixels"`
}

// Collection is the whole XML payload: barcode, canvas extent, and
// the list of images (main + macro) that compose the slide.
type Collection struct {
	Barcode string  `xml:"barcode"`
	SizeX   int     `xml:"sizeX,attr"`
	SizeY   int     `xml:"sizeY,attr"`
	Images  []Image `xml:"image"`
}

// document is the root <scn> element; its only job is to carry the
// namespace so Parse can reject anything that isn't a Leica SCN file.
type document struct {
	XMLName    xml.Name   `xml:"scn"`
	Collection Collection `xml:"collection"`
}

// Parse decodes an SCN document, rejecting anything whose root
// namespace doesn't match LeicaNamespace with FormatNotSupported-
// flavored behavior (the caller maps the returned error's presence to
// that Kind — this package has no dependency on gowsi's error types so
// it stays importable without a cycle).
func Parse(data []byte) (*Collection, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("not a Leica SCN document: %w", err)
	}
	if doc.XMLName.Space != LeicaNamespace {
		return nil, fmt.Errorf("namespace mismatch: got %q, want %q", doc.XMLName.Space, LeicaNamespace)
	}
	return &doc.Collection, nil
}
