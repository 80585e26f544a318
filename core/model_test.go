package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullContext() HierarchicalContext {
	return HierarchicalContext{
		Division:          "ATO DAS DISPOSIÇÕES CONSTITUCIONAIS TRANSITÓRIAS",
		Title:             "TÍTULO I",
		TitleCaption:      "DOS PRINCÍPIOS FUNDAMENTAIS",
		Chapter:           "CAPÍTULO I",
		ChapterCaption:    "DOS DIREITOS",
		Section:           "SEÇÃO I",
		SectionCaption:    "DISPOSIÇÕES GERAIS",
		Subsection:        "SUBSEÇÃO I",
		SubsectionCaption: "DA EMENDA",
		ArticleNumber:     "Art. 60",
	}
}

func TestHierarchicalContext_EnteringClearsLowerLevels(t *testing.T) {
	ctx := fullContext()

	tests := []struct {
		name string
		got  HierarchicalContext
		want HierarchicalContext
	}{
		{
			name: "division",
			got:  ctx.WithDivision("EMENDA CONSTITUCIONAL Nº 1"),
			want: HierarchicalContext{Division: "EMENDA CONSTITUCIONAL Nº 1"},
		},
		{
			name: "title",
			got:  ctx.WithTitle("TÍTULO II"),
			want: HierarchicalContext{Division: ctx.Division, Title: "TÍTULO II"},
		},
		{
			name: "chapter",
			got:  ctx.WithChapter("CAPÍTULO II"),
			want: HierarchicalContext{
				Division: ctx.Division, Title: ctx.Title, TitleCaption: ctx.TitleCaption,
				Chapter: "CAPÍTULO II",
			},
		},
		{
			name: "section",
			got:  ctx.WithSection("SEÇÃO II"),
			want: HierarchicalContext{
				Division: ctx.Division, Title: ctx.Title, TitleCaption: ctx.TitleCaption,
				Chapter: ctx.Chapter, ChapterCaption: ctx.ChapterCaption,
				Section: "SEÇÃO II",
			},
		},
		{
			name: "subsection",
			got:  ctx.WithSubsection("SUBSEÇÃO II"),
			want: HierarchicalContext{
				Division: ctx.Division, Title: ctx.Title, TitleCaption: ctx.TitleCaption,
				Chapter: ctx.Chapter, ChapterCaption: ctx.ChapterCaption,
				Section: ctx.Section, SectionCaption: ctx.SectionCaption,
				Subsection: "SUBSEÇÃO II",
			},
		},
		{
			name: "no structure",
			got:  ctx.WithoutStructure(),
			want: HierarchicalContext{Division: ctx.Division},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	// The receiver is a value and never changes.
	assert.Equal(t, fullContext(), ctx)
}

func TestHierarchicalContext_Deepest(t *testing.T) {
	ctx := HierarchicalContext{}
	_, ok := ctx.Deepest()
	assert.False(t, ok)

	ctx = ctx.WithArticle("Art. 1º")
	level, ok := ctx.Deepest()
	assert.True(t, ok)
	assert.Equal(t, KindArticle, level)

	ctx = ctx.WithTitle("TÍTULO I").WithChapter("CAPÍTULO I")
	level, _ = ctx.Deepest()
	assert.Equal(t, KindChapter, level)

	ctx = ctx.WithCaption(KindChapter, "DOS DIREITOS")
	assert.Equal(t, "DOS DIREITOS", ctx.Caption(KindChapter))
	assert.Equal(t, "CAPÍTULO I", ctx.Label(KindChapter))
	assert.Empty(t, ctx.Caption(KindArticle))
}

func TestElementKind_Predicates(t *testing.T) {
	assert.True(t, KindSubsection.IsBoundary())
	assert.False(t, KindArticle.IsBoundary())
	assert.True(t, KindTransitional.IsDeclaration())
	assert.True(t, KindSubitem.IsContent())
	assert.True(t, KindDatePlace.IsTerminal())
	assert.False(t, KindPromulgation.IsTerminal())
}

func TestStageError(t *testing.T) {
	assert.Nil(t, NewStageError(StageFetch, nil))

	err := NewStageError(StageSchema, assert.AnError)
	assert.EqualError(t, err, "schema failed: "+assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, IsStage(err, StageSchema))
	assert.False(t, IsStage(err, StageFetch))
	assert.Equal(t, StageSchema, FailedStage(err))
	assert.Equal(t, Stage(""), FailedStage(assert.AnError))
}
