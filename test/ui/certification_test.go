package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/gridcheck/internal/harness"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/grid"
	"github.com/ternarybob/gridcheck/internal/services/textnorm"
)

const certificationFixture = "certification.yaml"

func openCertification(t *testing.T) (*harness.Context, *grid.Grid[models.CertificationRecord]) {
	hc := newContext(t)
	g := hc.Certification
	require.NoError(t, g.OpenTab(hc.Ctx))
	_, err := g.DrainAll(hc.Ctx)
	require.NoError(t, err)
	return hc, g
}

func certificationAt(t *testing.T, hc *harness.Context, index int) models.CertificationRecord {
	record, err := hc.Fixtures.CertificationAt(certificationFixture, index)
	require.NoError(t, err)
	return record
}

func addCertification(t *testing.T, hc *harness.Context, record models.CertificationRecord) string {
	g := hc.Certification
	require.NoError(t, g.OpenForm(hc.Ctx))
	require.NoError(t, g.FillForm(hc.Ctx, record))
	require.NoError(t, g.SubmitAdd(hc.Ctx))
	text, err := hc.Feedback.SuccessText(hc.Ctx)
	require.NoError(t, err)
	return text
}

func TestCertificationAddShowsSuccess(t *testing.T) {
	hc, g := openCertification(t)
	record := certificationAt(t, hc, 0)

	text := addCertification(t, hc, record)
	assert.True(t, textnorm.Contains(text, models.MessageAdded), text)
	require.NoError(t, g.AssertExactCount(hc.Ctx, record, 1))
}

func TestCertificationDuplicateIsRejected(t *testing.T) {
	hc, g := openCertification(t)
	record := certificationAt(t, hc, 0)
	addCertification(t, hc, record)

	require.NoError(t, g.OpenForm(hc.Ctx))
	require.NoError(t, g.FillForm(hc.Ctx, record))
	require.NoError(t, g.SubmitAdd(hc.Ctx))

	text, err := hc.Feedback.ErrorText(hc.Ctx)
	require.NoError(t, err)
	assert.True(t, textnorm.Contains(text, models.DuplicateMessage(models.GridCertification)), text)
	require.NoError(t, g.AssertExactCount(hc.Ctx, record, 1))
}

func TestCertificationEditReplacesRow(t *testing.T) {
	hc, g := openCertification(t)
	original := certificationAt(t, hc, 0)
	updated := certificationAt(t, hc, 1)
	addCertification(t, hc, original)
	require.NoError(t, hc.Toasts.AwaitClear(hc.Ctx))

	require.NoError(t, g.EditFirst(hc.Ctx, updated))
	require.NoError(t, g.DoubleSubmitUpdate(hc.Ctx))
	text, err := hc.Feedback.SuccessText(hc.Ctx)
	require.NoError(t, err)
	assert.True(t, textnorm.Contains(text, models.MessageUpdated), text)

	require.NoError(t, g.AssertPresence(hc.Ctx, original, false))
	require.NoError(t, g.AssertExactCount(hc.Ctx, updated, 1))
}

func TestCertificationDeleteRemovesRow(t *testing.T) {
	hc, g := openCertification(t)
	record := certificationAt(t, hc, 0)
	addCertification(t, hc, record)

	text, err := g.DeleteMatching(hc.Ctx, record)
	require.NoError(t, err)
	assert.True(t, textnorm.Contains(text, models.DeletedMessage(models.GridCertification)), text)
	require.NoError(t, g.AssertPresence(hc.Ctx, record, false))
}

func TestCertificationDrainIsIdempotent(t *testing.T) {
	hc, g := openCertification(t)
	addCertification(t, hc, certificationAt(t, hc, 0))
	require.NoError(t, hc.Toasts.AwaitClear(hc.Ctx))
	addCertification(t, hc, certificationAt(t, hc, 1))

	report, err := g.DrainAll(hc.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed)

	report, err = g.DrainAll(hc.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)
}

func TestCertificationBlankFormShowsValidationDialog(t *testing.T) {
	hc, g := openCertification(t)
	blank := certificationAt(t, hc, 3)

	require.NoError(t, g.OpenForm(hc.Ctx))
	require.NoError(t, g.FillForm(hc.Ctx, blank))
	require.NoError(t, g.SubmitAdd(hc.Ctx))

	text, err := hc.Feedback.DialogTextIfAny(hc.Ctx)
	require.NoError(t, err)
	assert.True(t, textnorm.Contains(text, models.MessageBlankField), text)
}
