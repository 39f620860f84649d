package export

import (
	"bytes"
	"encoding/xml"
)

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	relFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"

	ctMain    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles  = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctHeader  = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"
	ctFooter  = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	ctRels    = "application/vnd.openxmlformats-package.relationships+xml"
	nsCTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPkgRels = "http://schemas.openxmlformats.org/package/2006/relationships"
)

const packageRels = xml.Header + `<Relationships xmlns="` + nsPkgRels + `">` +
	`<Relationship Id="rId1" Type="` + relOfficeDocument + `" Target="word/document.xml"/>` +
	`</Relationships>`

const stylesXML = xml.Header + `<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="22"/>` +
	`</w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
	`<w:pPr><w:spacing w:after="160"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/>` +
	`<w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="480" w:after="240"/><w:outlineLvl w:val="0"/></w:pPr>` +
	`<w:rPr><w:b/><w:color w:val="365F91"/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/>` +
	`<w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="1"/></w:pPr>` +
	`<w:rPr><w:b/><w:color w:val="4F81BD"/><w:sz w:val="26"/></w:rPr></w:style>` +
	`</w:styles>`

func contentTypes(hasHeader, hasFooter bool) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="` + nsCTypes + `">`)
	b.WriteString(`<Default Extension="rels" ContentType="` + ctRels + `"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="` + ctMain + `"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="` + ctStyles + `"/>`)
	if hasHeader {
		b.WriteString(`<Override PartName="/word/header1.xml" ContentType="` + ctHeader + `"/>`)
	}
	if hasFooter {
		b.WriteString(`<Override PartName="/word/footer1.xml" ContentType="` + ctFooter + `"/>`)
	}
	b.WriteString(`</Types>`)
	return b.Bytes()
}

func documentRels(hasHeader, hasFooter bool) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="` + nsPkgRels + `">`)
	b.WriteString(`<Relationship Id="rIdStyles" Type="` + relStyles + `" Target="styles.xml"/>`)
	if hasHeader {
		b.WriteString(`<Relationship Id="rIdHeader1" Type="` + relHeader + `" Target="header1.xml"/>`)
	}
	if hasFooter {
		b.WriteString(`<Relationship Id="rIdFooter1" Type="` + relFooter + `" Target="footer1.xml"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}
