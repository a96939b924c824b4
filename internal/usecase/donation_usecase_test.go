package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
)

func seededRepo() *fakeDonationsRepo {
	return &fakeDonationsRepo{donations: []model.Donation{
		{
			ID: "d1", DonorName: "Anna", DonorEmail: "anna@example.se",
			Squares: []model.CellKey{"1_1", "1_2"}, Amount: 40,
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "d2", DonorName: "Bo", DonorEmail: "bo@example.se",
			Squares: []model.CellKey{"1_2", "1_3"}, Amount: 40,
			ModeData:  &model.ModeData{Mode: model.ProvenanceModeText, Text: "HEJ"},
			Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
}

func TestListDonationsBuildsSquareData(t *testing.T) {
	cache := &fakeSnapshotCache{}
	u := NewDonationUseCase(seededRepo(), cache, 20, true)

	resp, err := u.ListDonations(context.Background())
	require.NoError(t, err)

	assert.False(t, resp.Degraded)
	assert.Equal(t, 2, resp.TotalDonations)
	assert.Equal(t, 3, resp.TotalSquares)
	assert.Equal(t, 80.0, resp.TotalRaised)
	assert.Equal(t, "Bo", resp.SquareData["1_2"].Donor, "later donation wins")
	assert.Equal(t, `Del av text "HEJ"`, resp.SquareData["1_3"].Label)
	assert.Len(t, cache.cells, 3, "snapshot refreshed")
}

func TestListDonationsFallsBackToSnapshot(t *testing.T) {
	cache := &fakeSnapshotCache{}
	repo := seededRepo()
	u := NewDonationUseCase(repo, cache, 20, true)
	_, err := u.ListDonations(context.Background())
	require.NoError(t, err)

	repo.getAllErr = errors.New("connection refused")
	resp, err := u.ListDonations(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, 3, resp.TotalSquares)
	assert.Equal(t, 2, resp.TotalDonations)
	assert.Equal(t, 60.0, resp.TotalRaised)
}

func TestDonatedCellsWithoutSnapshotFails(t *testing.T) {
	repo := &fakeDonationsRepo{getAllErr: errors.New("timeout")}

	_, _, err := NewDonationUseCase(repo, &fakeSnapshotCache{}, 20, true).DonatedCells(context.Background())
	assert.ErrorIs(t, err, model.ErrPersistenceRead)

	_, _, err = NewDonationUseCase(repo, nil, 20, true).DonatedCells(context.Background())
	assert.ErrorIs(t, err, model.ErrPersistenceRead)
}

func TestDonatedCellsDegradedFlag(t *testing.T) {
	cache := &fakeSnapshotCache{cells: map[model.CellKey]model.DonatedCell{"9_9": {Key: "9_9", Donor: "C"}}}
	repo := &fakeDonationsRepo{getAllErr: errors.New("timeout")}

	cells, degraded, err := NewDonationUseCase(repo, cache, 20, true).DonatedCells(context.Background())
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Contains(t, cells, model.CellKey("9_9"))
}

func TestGetDonation(t *testing.T) {
	u := NewDonationUseCase(seededRepo(), nil, 20, true)

	resp, err := u.GetDonation(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, []model.CellKey{"1_2", "1_3"}, resp.Squares)

	_, err = u.GetDonation(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrDonationNotFound)
}

func TestSaveTestDonation(t *testing.T) {
	repo := &fakeDonationsRepo{}
	u := NewDonationUseCase(repo, nil, 20, true)

	resp, err := u.SaveTestDonation(context.Background(), &model.SaveDonationRequest{
		DonorName: "Anna", DonorEmail: "anna@example.se",
		Squares: []string{"1_1", "1_2"}, Amount: 40,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, model.PaymentStatusTestSimulated, resp.Donation.PaymentStatus)
	assert.True(t, strings.HasPrefix(resp.Donation.SessionID, "test_"))
	assert.Equal(t, 40.0, resp.Donation.Amount)
	assert.Equal(t, model.ProvenanceModeClick, resp.Donation.ModeData.Mode)
}

func TestSaveTestDonationSplitsTextAndClickSquares(t *testing.T) {
	repo := &fakeDonationsRepo{}
	u := NewDonationUseCase(repo, nil, 20, true)

	_, err := u.SaveTestDonation(context.Background(), &model.SaveDonationRequest{
		DonorName: "Anna", DonorEmail: "anna@example.se",
		Squares:     []string{"1_1", "1_2", "1_3"},
		TextSquares: []string{"1_2", "1_3"},
		ModeData:    &model.ModeData{Mode: model.ProvenanceModeText, Text: "HI"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, repo.count())
	assert.Equal(t, repo.donations[0].SessionID, repo.donations[1].SessionID)
	assert.Equal(t, 20.0, repo.donations[0].Amount)
	assert.Equal(t, 40.0, repo.donations[1].Amount)
}

func TestSaveTestDonationRequiresTestMode(t *testing.T) {
	u := NewDonationUseCase(&fakeDonationsRepo{}, nil, 20, false)
	_, err := u.SaveTestDonation(context.Background(), &model.SaveDonationRequest{Squares: []string{"1_1"}})
	assert.ErrorIs(t, err, model.ErrTestModeDisabled)
}

func TestTestSessionIDFormat(t *testing.T) {
	id := TestSessionID(time.UnixMilli(1700000000123))
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "test", parts[0])
	assert.Equal(t, "1700000000123", parts[1])
	assert.Len(t, parts[2], 9)
}

func TestCreateDonationsNotifiesObservers(t *testing.T) {
	repo := &fakeDonationsRepo{}
	u := NewDonationUseCase(repo, nil, 20, true)
	got := make(chan []model.DonatedCell, 1)
	u.OnDonationsSaved(func(cells []model.DonatedCell) { got <- cells })

	ts := time.Now()
	cells, err := u.CreateDonations(context.Background(), &selection.PurchaseBatch{
		Donor: model.DonorInfo{Name: "Anna", Email: "anna@example.se"},
		Cells: []model.DonatedCell{
			{Key: "1_1", Donor: "Anna", Timestamp: ts, Provenance: model.ClickProvenance{}},
			{Key: "1_2", Donor: "Anna", Timestamp: ts, Provenance: model.TextProvenance{Text: "A"}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, cells, 2)
	for _, c := range cells {
		assert.NotEmpty(t, c.DonationID)
	}

	select {
	case notified := <-got:
		assert.Len(t, notified, 2)
	case <-time.After(time.Second):
		t.Fatal("observer not notified")
	}
}

func TestRecordDonationsWrapsWriteFailure(t *testing.T) {
	repo := &fakeDonationsRepo{createErr: errors.New("constraint violation")}
	u := NewDonationUseCase(repo, nil, 20, true)

	_, err := u.RecordDonations(context.Background(), []*model.Donation{{DonorName: "A", Squares: []model.CellKey{"1_1"}}}, SourceTest)
	assert.ErrorIs(t, err, model.ErrPersistenceWrite)
	assert.Zero(t, repo.count())
}
