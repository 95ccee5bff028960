package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachExpeditionRecomputesTotals(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	requireAmount(t, "0", invoice.HT)
	assert.False(t, invoice.Paid)

	first := env.pricedExpedition(t, "1000")
	second := env.pricedExpedition(t, "500")

	status := env.attach(t, first.ID, invoice.ID)
	requireAmount(t, "1000", status.HT)
	requireAmount(t, "190", status.TVA)
	requireAmount(t, "1190", status.TTC)

	status = env.attach(t, second.ID, invoice.ID)
	requireAmount(t, "1500", status.HT)
	requireAmount(t, "285.00", status.TVA)
	requireAmount(t, "1785.00", status.TTC)
	assert.False(t, status.Paid)

	stored := env.reloadInvoice(t, invoice.ID)
	requireAmount(t, "1500", stored.HT)
	requireAmount(t, "285", stored.TVA)
	requireAmount(t, "1785", stored.TTC)
}

func TestAttachUnpricedExpeditionCountsAsZero(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	unpriced := env.expedition(t, "10", "1", nil)
	assert.Nil(t, unpriced.EstimatedAmount)

	status := env.attach(t, unpriced.ID, invoice.ID)
	requireAmount(t, "0", status.HT)
	requireAmount(t, "0", status.TTC)
}

func TestAttachRejectsAlreadyInvoicedExpedition(t *testing.T) {
	env := newTestEnv(t)
	first := env.invoice(t)
	second := env.invoice(t)
	expedition := env.pricedExpedition(t, "1000")
	env.attach(t, expedition.ID, first.ID)

	for _, target := range []uint{first.ID, second.ID} {
		_, err := env.invoices.AttachExpedition(env.ctx, AttachInput{
			Principal:    agent,
			ExpeditionID: expedition.ID,
			InvoiceID:    target,
		})
		require.ErrorIs(t, err, ErrAlreadyInvoiced)

		var invoicedErr *AlreadyInvoicedError
		require.True(t, errors.As(err, &invoicedErr))
		assert.Equal(t, first.ID, invoicedErr.InvoiceID)
	}

	requireAmount(t, "1000", env.reloadInvoice(t, first.ID).HT)
	requireAmount(t, "0", env.reloadInvoice(t, second.ID).HT)
}

func TestAttachMissingRows(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	expedition := env.pricedExpedition(t, "10")

	_, err := env.invoices.AttachExpedition(env.ctx, AttachInput{Principal: agent, ExpeditionID: expedition.ID, InvoiceID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.invoices.AttachExpedition(env.ctx, AttachInput{Principal: agent, ExpeditionID: 999, InvoiceID: invoice.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.invoices.AttachExpedition(env.ctx, AttachInput{Principal: agent})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDetachUnmarksPaidInvoice(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	big := env.pricedExpedition(t, "1000")
	small := env.pricedExpedition(t, "500")
	env.attach(t, big.ID, invoice.ID)
	env.attach(t, small.ID, invoice.ID)

	paid := env.pay(t, invoice.ID, "1785.00")
	assert.True(t, paid.Invoice.Paid)
	assert.True(t, env.reloadInvoice(t, invoice.ID).Paid)

	links, err := env.invoices.ListInvoiceLinks(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	require.NoError(t, err)
	require.Len(t, links, 2)

	var smallLink uint
	for _, link := range links {
		if link.ExpeditionID == small.ID {
			smallLink = link.ID
		}
	}
	require.NotZero(t, smallLink)

	status, err := env.invoices.DetachExpedition(env.ctx, DetachInput{Principal: agent, LinkID: smallLink})
	require.NoError(t, err)
	requireAmount(t, "1000", status.HT)
	requireAmount(t, "1190.00", status.TTC)
	assert.False(t, status.Paid)
	requireAmount(t, "595.00", status.Credit)

	stored := env.reloadInvoice(t, invoice.ID)
	assert.False(t, stored.Paid)
	requireAmount(t, "1190", stored.TTC)
}

func TestDetachAllReturnsToZero(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	env.attach(t, env.pricedExpedition(t, "120").ID, invoice.ID)
	env.attach(t, env.pricedExpedition(t, "80.50").ID, invoice.ID)

	links, err := env.invoices.ListInvoiceLinks(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	require.NoError(t, err)

	var status *InvoiceStatus
	for _, link := range links {
		status, err = env.invoices.DetachExpedition(env.ctx, DetachInput{Principal: agent, LinkID: link.ID})
		require.NoError(t, err)
	}
	requireAmount(t, "0", status.HT)
	requireAmount(t, "0", status.TVA)
	requireAmount(t, "0", status.TTC)
	assert.False(t, status.Paid)

	_, err = env.invoices.DetachExpedition(env.ctx, DetachInput{Principal: agent, LinkID: links[0].ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyInvoicePaidStateAgrees(t *testing.T) {
	env := newTestEnv(t)
	fresh := env.invoice(t)

	emptied := env.invoice(t)
	env.attach(t, env.pricedExpedition(t, "100").ID, emptied.ID)
	links, err := env.invoices.ListInvoiceLinks(env.ctx, InvoiceInput{Principal: agent, InvoiceID: emptied.ID})
	require.NoError(t, err)
	require.Len(t, links, 1)
	_, err = env.invoices.DetachExpedition(env.ctx, DetachInput{Principal: agent, LinkID: links[0].ID})
	require.NoError(t, err)

	for _, id := range []uint{fresh.ID, emptied.ID} {
		details, err := env.invoices.GetInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: id})
		require.NoError(t, err)
		requireAmount(t, "0", details.Invoice.TTC)
		assert.False(t, details.Invoice.Paid, "invoice %d", id)
		assert.Equal(t, details.Invoice.Paid, details.Status.Paid, "invoice %d", id)
	}

	reports, _, _ := newReportService(env, nil)
	unpaid, err := reports.ListUnpaidInvoices(env.ctx, UnpaidInput{Principal: agent})
	require.NoError(t, err)
	ids := make([]uint, 0, len(unpaid))
	for _, invoice := range unpaid {
		ids = append(ids, invoice.ID)
	}
	assert.ElementsMatch(t, []uint{fresh.ID, emptied.ID}, ids)
}

func TestDetachedExpeditionCanBeReattached(t *testing.T) {
	env := newTestEnv(t)
	first := env.invoice(t)
	second := env.invoice(t)
	expedition := env.pricedExpedition(t, "100")
	env.attach(t, expedition.ID, first.ID)

	links, err := env.invoices.ListInvoiceLinks(env.ctx, InvoiceInput{Principal: agent, InvoiceID: first.ID})
	require.NoError(t, err)
	_, err = env.invoices.DetachExpedition(env.ctx, DetachInput{Principal: agent, LinkID: links[0].ID})
	require.NoError(t, err)

	status := env.attach(t, expedition.ID, second.ID)
	requireAmount(t, "119", status.TTC)
}

func TestGetInvoiceDetails(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	expedition := env.pricedExpedition(t, "100")
	env.attach(t, expedition.ID, invoice.ID)
	env.pay(t, invoice.ID, "19")

	details, err := env.invoices.GetInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	require.NoError(t, err)
	require.Len(t, details.Links, 1)
	require.NotNil(t, details.Links[0].Expedition)
	assert.Equal(t, expedition.ID, details.Links[0].Expedition.ID)
	require.Len(t, details.Payments, 1)
	requireAmount(t, "19", details.Status.PaidAmount)
	requireAmount(t, "100", details.Status.Outstanding)
}

func TestInvoiceVisibilityForClients(t *testing.T) {
	env := newTestEnv(t)
	clientID := uint(42)
	owned, err := env.invoices.CreateInvoice(env.ctx, CreateInvoiceInput{Principal: agent, ClientID: &clientID})
	require.NoError(t, err)
	other := env.invoice(t)

	_, err = env.invoices.GetInvoice(env.ctx, InvoiceInput{Principal: clientPrincipal(42), InvoiceID: owned.ID})
	assert.NoError(t, err)

	_, err = env.invoices.GetInvoice(env.ctx, InvoiceInput{Principal: clientPrincipal(42), InvoiceID: other.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.invoices.CreateInvoice(env.ctx, CreateInvoiceInput{Principal: clientPrincipal(42)})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.invoices.AttachExpedition(env.ctx, AttachInput{Principal: clientPrincipal(42), ExpeditionID: 1, InvoiceID: owned.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeleteInvoiceCascades(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.invoice(t)
	expedition := env.pricedExpedition(t, "100")
	env.attach(t, expedition.ID, invoice.ID)
	env.pay(t, invoice.ID, "50")

	require.NoError(t, env.invoices.DeleteInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID}))

	_, err := env.invoices.GetInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	var payments, links int64
	require.NoError(t, env.db.Table("payments").Count(&payments).Error)
	require.NoError(t, env.db.Table("expedition_invoices").Count(&links).Error)
	assert.Zero(t, payments)
	assert.Zero(t, links)

	// The expedition is free to be invoiced again.
	env.attach(t, expedition.ID, env.invoice(t).ID)

	err = env.invoices.DeleteInvoice(env.ctx, InvoiceInput{Principal: agent, InvoiceID: invoice.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}
