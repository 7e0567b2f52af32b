package tusk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk"
)

const sampleMEI = `<?xml version="1.0"?>
<mei meiversion="6.0-dev">
  <meiHead>
    <fileDesc>
      <titleStmt>
        <title>Cross-Package Sample</title>
        <creator role="composer">A. Composer</creator>
      </titleStmt>
    </fileDesc>
  </meiHead>
  <music>
    <body>
      <mdiv>
        <score>
          <scoreDef keysig="0" meter.count="4" meter.unit="4">
            <staffGrp symbol="brace">
              <staffDef n="1" clef.shape="G" clef.line="2"/>
            </staffGrp>
          </scoreDef>
          <section>
            <measure n="1">
              <staff n="1">
                <layer n="1">
                  <note xml:id="n1" pname="c" oct="4" dur="quarter"/>
                  <note xml:id="n2" pname="d" oct="4" dur="quarter"/>
                  <note xml:id="n3" pname="e" oct="4" dur="half"/>
                </layer>
              </staff>
              <slur startid="n1" endid="n3"/>
            </measure>
          </section>
        </score>
      </mdiv>
    </body>
  </music>
</mei>
`

func TestImportExportMEIRoundTrip(t *testing.T) {
	doc, err := tusk.ImportMEI([]byte(sampleMEI), tusk.StrictOptions())
	require.NoError(t, err)

	out, err := tusk.ExportMEI(doc, tusk.StrictOptions())
	require.NoError(t, err)

	reimported, err := tusk.ImportMEI(out, tusk.StrictOptions())
	require.NoError(t, err)
	assert.Equal(t, doc.Model.MeiHead.FileDesc.TitleStmt.Title.Text,
		reimported.Model.MeiHead.FileDesc.TitleStmt.Title.Text)
	require.Len(t, reimported.Model.Music.Body.Mdivs, 1)
}

func TestMEIToMusicXMLToMEIPreservesNotes(t *testing.T) {
	doc, err := tusk.ImportMEI([]byte(sampleMEI), tusk.StrictOptions())
	require.NoError(t, err)

	mxml, err := tusk.ExportMusicXML(doc, tusk.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, mxml)

	back, err := tusk.ImportMusicXML(mxml, tusk.DefaultOptions())
	require.NoError(t, err)

	section := back.Model.Music.Body.Mdivs[0].Score.Sections[0]
	require.Len(t, section.Measures, 1)

	var noteCount int
	for _, st := range section.Measures[0].Children {
		if st.Tag.String() != "staff" || st.Staff == nil {
			continue
		}
		for _, layer := range st.Staff.Layers {
			for _, c := range layer.Children {
				if c.Note != nil {
					noteCount++
				}
			}
		}
	}
	assert.Equal(t, 3, noteCount)
}

const criticalApparatusMEI = `<?xml version="1.0"?>
<mei meiversion="6.0-dev">
  <music>
    <body>
      <mdiv>
        <score>
          <section>
            <measure n="1">
              <staff n="1">
                <layer n="1">
                  <note xml:id="n1" pname="c" oct="4" dur="quarter"/>
                </layer>
              </staff>
              <app>
                <lem>alternate reading</lem>
              </app>
            </measure>
          </section>
        </score>
      </mdiv>
    </body>
  </music>
</mei>
`

func TestMEIToMusicXMLRecordsCriticalApparatusLoss(t *testing.T) {
	doc, err := tusk.ImportMEI([]byte(criticalApparatusMEI), tusk.DefaultOptions())
	require.NoError(t, err)

	_, err = tusk.ExportMusicXML(doc, tusk.DefaultOptions())
	require.NoError(t, err)

	report := doc.LossReport()
	assert.Equal(t, 2, report["critical-apparatus"], "the <app> wrapper and its one <lem> should each count")
}

func TestMEIToLilyPondToMEIPreservesPitches(t *testing.T) {
	doc, err := tusk.ImportMEI([]byte(sampleMEI), tusk.DefaultOptions())
	require.NoError(t, err)

	ly, err := tusk.ExportLilyPond(doc, tusk.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, ly)

	back, err := tusk.ImportLilyPond(ly, tusk.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, back.Model.Music)
	require.NotNil(t, back.Model.MeiHead.FileDesc.TitleStmt.Title)
	assert.Equal(t, "Cross-Package Sample", back.Model.MeiHead.FileDesc.TitleStmt.Title.Text)

	staves := back.Model.Music.Body.Mdivs[0].Score.Sections[0].Measures[0].Staves()
	require.Len(t, staves, 1)
	events := staves[0].Layers[0].Events()
	require.Len(t, events, 3)
	wantSteps := []string{"C", "D", "E"}
	for i, ev := range events {
		require.NotNil(t, ev.Note)
		assert.Equal(t, wantSteps[i], ev.Note.Pitch.Step)
		assert.Equal(t, 4, ev.Note.Pitch.Octave)
	}
}
