// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// XML structures for one <PubmedArticle> element, following the PubMed
// DTD (https://dtd.nlm.nih.gov/ncbi/pubmed/).
type xmlArticle struct {
	Citation xmlCitation   `xml:"MedlineCitation"`
	Data     xmlPubmedData `xml:"PubmedData"`
}

type xmlCitation struct {
	PMID    string           `xml:"PMID"`
	Article xmlArticleMeta   `xml:"Article"`
	Mesh    []xmlMeshHeading `xml:"MeshHeadingList>MeshHeading"`
}

type xmlArticleMeta struct {
	Title    string            `xml:"ArticleTitle"`
	Abstract []xmlAbstractText `xml:"Abstract>AbstractText"`
	Authors  []xmlAuthor       `xml:"AuthorList>Author"`
}

type xmlAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type xmlAuthor struct {
	LastName     string          `xml:"LastName"`
	ForeName     string          `xml:"ForeName"`
	Identifiers  []xmlIdentifier `xml:"Identifier"`
	Affiliations []string        `xml:"AffiliationInfo>Affiliation"`
}

type xmlIdentifier struct {
	Source string `xml:"Source,attr"`
	Value  string `xml:",chardata"`
}

type xmlMeshHeading struct {
	Descriptor xmlMeshTerm   `xml:"DescriptorName"`
	Qualifiers []xmlMeshTerm `xml:"QualifierName"`
}

type xmlMeshTerm struct {
	UI    string `xml:"UI,attr"`
	Major string `xml:"MajorTopicYN,attr"`
	Name  string `xml:",chardata"`
}

type xmlPubmedData struct {
	History    []xmlPubDate   `xml:"History>PubMedPubDate"`
	References []xmlReference `xml:"ReferenceList>Reference"`
}

type xmlPubDate struct {
	Status string `xml:"PubStatus,attr"`
	Year   int    `xml:"Year"`
	Month  int    `xml:"Month"`
	Day    int    `xml:"Day"`
}

type xmlReference struct {
	IDs []xmlArticleID `xml:"ArticleIdList>ArticleId"`
}

type xmlArticleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// toArticle maps a decoded record to the domain model. It tolerates
// missing optional fields (abstract, affiliations, dates) and fails only
// on records that cannot be identified or searched.
func toArticle(x *xmlArticle) (*types.Article, error) {
	pmid := strings.TrimSpace(x.Citation.PMID)
	if pmid == "" {
		return nil, fmt.Errorf("record has no PMID")
	}
	title := strings.TrimSpace(x.Citation.Article.Title)
	if title == "" {
		return nil, fmt.Errorf("record %s has no title", pmid)
	}

	a := &types.Article{
		ID:       pmid,
		Title:    title,
		Abstract: flattenAbstract(x.Citation.Article.Abstract),
		Date:     pubmedDate(x.Data.History),
	}

	for _, au := range x.Citation.Article.Authors {
		last := strings.TrimSpace(au.LastName)
		if last == "" {
			// Collective/group author entries carry no person name.
			continue
		}
		raw := types.RawAuthor{
			FamilyName: last,
			GivenName:  strings.TrimSpace(au.ForeName),
		}
		for _, id := range au.Identifiers {
			if strings.EqualFold(id.Source, "ORCID") {
				raw.ORCID = strings.TrimSpace(id.Value)
				break
			}
		}
		if len(au.Affiliations) > 0 {
			raw.Affiliation = strings.TrimSpace(au.Affiliations[0])
		}
		a.Authors = append(a.Authors, raw)
	}

	for _, mh := range x.Citation.Mesh {
		h := types.MeshHeading{
			ID:         mh.Descriptor.UI,
			Name:       strings.TrimSpace(mh.Descriptor.Name),
			MajorTopic: mh.Descriptor.Major == "Y",
		}
		for _, q := range mh.Qualifiers {
			h.Qualifiers = append(h.Qualifiers, types.MeshQualifier{
				ID:         q.UI,
				Name:       strings.TrimSpace(q.Name),
				MajorTopic: q.Major == "Y",
			})
		}
		a.Mesh = append(a.Mesh, h)
	}

	for _, ref := range x.Data.References {
		for _, id := range ref.IDs {
			if id.Type == "pubmed" {
				a.References = append(a.References, strings.TrimSpace(id.Value))
			}
		}
	}

	return a, nil
}

// flattenAbstract joins labeled abstract segments into one searchable
// string ("BACKGROUND: ... METHODS: ...").
func flattenAbstract(parts []xmlAbstractText) string {
	var b strings.Builder
	for _, p := range parts {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		if label := strings.TrimSpace(p.Label); label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// pubmedDate picks the history date with PubStatus "pubmed", the same
// signal the upstream index uses for recency. Returns zero when absent
// or unparseable.
func pubmedDate(history []xmlPubDate) time.Time {
	for _, d := range history {
		if d.Status != "pubmed" {
			continue
		}
		if d.Year == 0 {
			return time.Time{}
		}
		month := d.Month
		if month < 1 || month > 12 {
			month = 1
		}
		day := d.Day
		if day < 1 || day > 31 {
			day = 1
		}
		return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}
