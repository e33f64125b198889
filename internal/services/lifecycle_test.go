package services

import (
	"context"
	"testing"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/models"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDocument(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	doc := e.motion(t, alice)
	assert.Equal(t, "submitted", doc.State.Name)
	assert.Equal(t, uint64(0), doc.Revision)
	require.Len(t, doc.Versions, 1)
	assert.Equal(t, 1, doc.Versions[0].VersionNumber)
	assert.Equal(t, "Motion", doc.Versions[0].Title)
	require.Len(t, doc.Submitters, 1)
	assert.Equal(t, "alice", doc.Submitters[0].PersonID)
	require.NotNil(t, doc.Identifier)
	assert.Equal(t, "1", *doc.Identifier)
	assert.Equal(t, "1", *doc.Versions[0].Identifier)

	t.Run("Submitters named by a manager", func(t *testing.T) {
		doc := e.motion(t, admin, func(in *CreateDocumentInput) {
			in.Submitters = []string{"bob", "carol", "bob", " "}
		})
		require.Len(t, doc.Submitters, 2)
		assert.Equal(t, "bob", doc.Submitters[0].PersonID)
		assert.Equal(t, "carol", doc.Submitters[1].PersonID)
	})

	t.Run("Rejected input", func(t *testing.T) {
		_, err := e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: "resolution", Title: "x"}, admin)
		assertKind(t, err, types.KindInvalidInput)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: models.KindMotion, Title: "  "}, admin)
		assertKind(t, err, types.KindInvalidInput)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{
			Kind:       models.KindMotion,
			Title:      "x",
			WorkflowID: e.workflowID(t, "Election Workflow"),
		}, admin)
		assertKind(t, err, types.KindInvalidInput)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{
			Kind:       models.KindMotion,
			Title:      "x",
			CategoryID: ptr(uint64(999)),
		}, admin)
		assertKind(t, err, types.KindNotFound)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{
			Kind:       models.KindMotion,
			Title:      "x",
			Submitters: []string{" ", ""},
		}, admin)
		assertKind(t, err, types.KindInvalidInput)
		var count int64
		require.NoError(t, e.db.Model(&models.Document{}).Where("kind = ?", models.KindMotion).Count(&count).Error)
		assert.Equal(t, int64(2), count, "rejected documents are not stored")
	})

	t.Run("Permissions", func(t *testing.T) {
		_, err := e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: models.KindAssignment, Title: "x"}, alice)
		assertKind(t, err, types.KindForbidden)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: models.KindMotion, Title: "x", Identifier: ptr("A1")}, alice)
		assertKind(t, err, types.KindForbidden)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: models.KindMotion, Title: "x", Submitters: []string{"bob"}}, alice)
		assertKind(t, err, types.KindForbidden)

		_, err = e.lifecycle.CreateDocument(ctx, CreateDocumentInput{Kind: models.KindMotion, Title: "x"}, NewActor("guest"))
		assertKind(t, err, types.KindForbidden)
	})
}

func TestCreateDocumentMissingWorkflow(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.MotionWorkflow = "Unknown Workflow"
	})

	_, err := e.lifecycle.CreateDocument(context.Background(), CreateDocumentInput{Kind: models.KindMotion, Title: "x"}, admin)
	assertKind(t, err, types.KindConfiguration)
}

func TestSetStateFollowsEdges(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	doc := e.motion(t, alice)

	require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "accepted"}, nil, alice))
	assert.Equal(t, "accepted", e.stateName(t, doc.DocumentID))

	err := e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "accepted"}, nil, alice)
	assertKind(t, err, types.KindInvalidTransition)

	err = e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "rejected"}, nil, alice)
	assertKind(t, err, types.KindInvalidTransition)

	// managers are not bound to the edges
	require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "submitted"}, nil, admin))
	assert.Equal(t, "submitted", e.stateName(t, doc.DocumentID))

	err = e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "accepted"}, nil, bob)
	assertKind(t, err, types.KindForbidden)

	err = e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "voting"}, nil, admin)
	assertKind(t, err, types.KindNotFound)

	other, err := e.graph.StateByName(*e.workflowID(t, "Complex Workflow"), "permitted")
	require.NoError(t, err)
	err = e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{ID: other.StateID}, nil, admin)
	assertKind(t, err, types.KindInvalidTransition)

	err = e.lifecycle.SetState(ctx, 4242, StateRef{Name: "accepted"}, nil, admin)
	assertKind(t, err, types.KindNotFound)
}

func TestRevisionConflict(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	doc := e.motion(t, alice)

	require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "accepted"}, ptr(uint64(0)), admin))
	assert.Equal(t, uint64(1), e.reload(t, doc.DocumentID).Revision)

	err := e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "rejected"}, ptr(uint64(0)), admin)
	assertKind(t, err, types.KindConflict)
	assert.Equal(t, "accepted", e.stateName(t, doc.DocumentID))

	require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "rejected"}, ptr(uint64(1)), admin))
	assert.Equal(t, uint64(2), e.reload(t, doc.DocumentID).Revision)
}

func TestSupportQuorum(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.MinSupporters = 3
	})
	ctx := context.Background()
	doc := e.motion(t, alice)
	id := doc.DocumentID

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, bob))
	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, carol))

	enough, err := e.lifecycle.EnoughSupporters(ctx, id)
	require.NoError(t, err)
	assert.False(t, enough)

	err = e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, alice)
	assertKind(t, err, types.KindInvalidTransition)

	err = e.lifecycle.Support(ctx, id, "", nil, alice)
	assertKind(t, err, types.KindSelfSupportForbidden)

	err = e.lifecycle.Support(ctx, id, "", nil, bob)
	assertKind(t, err, types.KindAlreadySupporting)

	err = e.lifecycle.Support(ctx, id, "dave", nil, bob)
	assertKind(t, err, types.KindForbidden)

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, dave))
	enough, err = e.lifecycle.EnoughSupporters(ctx, id)
	require.NoError(t, err)
	assert.True(t, enough)

	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, alice))
	reloaded := e.reload(t, id)
	assert.Equal(t, "accepted", reloaded.State.Name)
	assert.Empty(t, reloaded.Supporters)

	removed := 0
	for _, m := range e.audit.messages() {
		if m == "Supporter removed" {
			removed++
		}
	}
	assert.Equal(t, 3, removed)

	err = e.lifecycle.Support(ctx, id, "", nil, bob)
	assertKind(t, err, types.KindInvalidTransition)
}

func TestUnsupport(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.MinSupporters = 1
	})
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	err := e.lifecycle.Unsupport(ctx, id, "", nil, bob)
	assertKind(t, err, types.KindNotSupporting)

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, bob))
	err = e.lifecycle.Unsupport(ctx, id, "bob", nil, carol)
	assertKind(t, err, types.KindForbidden)

	require.NoError(t, e.lifecycle.Unsupport(ctx, id, "bob", nil, admin))
	assert.Empty(t, e.reload(t, id).Supporters)
}

func TestSupportersKeptWithoutAutoRemove(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.AutoRemoveSupporters = false
	})
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, bob))
	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, admin))
	assert.Len(t, e.reload(t, id).Supporters, 1)
}

func TestIdentifierNumbering(t *testing.T) {
	ctx := context.Background()

	t.Run("Per category", func(t *testing.T) {
		e := newEngine(t, func(a *config.Assembly) {
			a.IdentifierMinDigits = 3
			a.IdentifierWithBlank = true
		})
		finance, err := e.lifecycle.CreateCategory(ctx, "Finance", "F", admin)
		require.NoError(t, err)
		statutes, err := e.lifecycle.CreateCategory(ctx, "Statutes", "S", admin)
		require.NoError(t, err)

		inFinance := func(in *CreateDocumentInput) { in.CategoryID = &finance.CategoryID }
		inStatutes := func(in *CreateDocumentInput) { in.CategoryID = &statutes.CategoryID }

		assert.Equal(t, "F 001", *e.motion(t, alice, inFinance).Identifier)
		assert.Equal(t, "F 002", *e.motion(t, alice, inFinance).Identifier)
		assert.Equal(t, "S 001", *e.motion(t, alice, inStatutes).Identifier)
		assert.Equal(t, "001", *e.motion(t, alice).Identifier)
	})

	t.Run("Serial", func(t *testing.T) {
		e := newEngine(t, func(a *config.Assembly) {
			a.IdentifierNumbering = config.NumberingSerial
		})
		cat, err := e.lifecycle.CreateCategory(ctx, "Finance", "F", admin)
		require.NoError(t, err)

		assert.Equal(t, "1", *e.motion(t, alice, func(in *CreateDocumentInput) { in.CategoryID = &cat.CategoryID }).Identifier)
		assert.Equal(t, "2", *e.motion(t, alice).Identifier)

		// assignments draw from the same sequence
		election := e.assignment(t, 1)
		assert.Nil(t, election.Identifier)
		require.NoError(t, e.lifecycle.AssignIdentifier(ctx, election.DocumentID, nil, nil, admin))
		assert.Equal(t, "3", *e.reload(t, election.DocumentID).Identifier)
		assert.Equal(t, "4", *e.motion(t, alice).Identifier)

		var scopes []string
		require.NoError(t, e.db.Model(&models.IdentifierSequence{}).Where("scope LIKE ?", "serial%").Pluck("scope", &scopes).Error)
		assert.Equal(t, []string{"serial"}, scopes)
	})

	t.Run("Used numbers are skipped", func(t *testing.T) {
		e := newEngine(t, func(a *config.Assembly) {
			a.IdentifierNumbering = config.NumberingSerial
		})
		assert.Equal(t, "2", *e.motion(t, admin, func(in *CreateDocumentInput) { in.Identifier = ptr("2") }).Identifier)
		assert.Equal(t, "1", *e.motion(t, alice).Identifier)
		assert.Equal(t, "3", *e.motion(t, alice).Identifier)
	})

	t.Run("Manual", func(t *testing.T) {
		e := newEngine(t, func(a *config.Assembly) {
			a.IdentifierNumbering = config.NumberingManual
		})
		first := e.motion(t, alice)
		second := e.motion(t, alice)
		assert.Nil(t, first.Identifier)

		err := e.lifecycle.AssignIdentifier(ctx, first.DocumentID, nil, nil, admin)
		assertKind(t, err, types.KindInvalidInput)

		err = e.lifecycle.AssignIdentifier(ctx, first.DocumentID, ptr("M-7"), nil, alice)
		assertKind(t, err, types.KindForbidden)

		require.NoError(t, e.lifecycle.AssignIdentifier(ctx, first.DocumentID, ptr("M-7"), nil, admin))
		assert.Equal(t, "M-7", *e.reload(t, first.DocumentID).Identifier)

		err = e.lifecycle.AssignIdentifier(ctx, second.DocumentID, ptr(" M-7 "), nil, admin)
		assertKind(t, err, types.KindDuplicateIdentifier)

		err = e.lifecycle.AssignIdentifier(ctx, first.DocumentID, ptr("M-8"), nil, admin)
		assertKind(t, err, types.KindAlreadyAssigned)

		// transitions leave numbering to the managers
		require.NoError(t, e.lifecycle.SetState(ctx, second.DocumentID, StateRef{Name: "accepted"}, nil, admin))
		assert.Nil(t, e.reload(t, second.DocumentID).Identifier)
	})

	t.Run("Assigned on entering a numbering state", func(t *testing.T) {
		e := newEngine(t)
		doc := e.motion(t, alice, func(in *CreateDocumentInput) {
			in.WorkflowID = e.workflowID(t, "Complex Workflow")
		})
		assert.Equal(t, "published", doc.State.Name)
		assert.Nil(t, doc.Identifier)

		require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "permitted"}, nil, admin))
		reloaded := e.reload(t, doc.DocumentID)
		require.NotNil(t, reloaded.Identifier)
		assert.Equal(t, "1", *reloaded.Identifier)

		require.NoError(t, e.lifecycle.Reset(ctx, doc.DocumentID, nil, admin))
		reloaded = e.reload(t, doc.DocumentID)
		assert.Equal(t, "published", reloaded.State.Name)
		assert.Nil(t, reloaded.Identifier)

		require.NoError(t, e.lifecycle.SetState(ctx, doc.DocumentID, StateRef{Name: "permitted"}, nil, admin))
		assert.Equal(t, "2", *e.reload(t, doc.DocumentID).Identifier)
	})
}

func TestFormatIdentifier(t *testing.T) {
	assert.Equal(t, "7", FormatIdentifier("", true, 1, 7))
	assert.Equal(t, "A07", FormatIdentifier("A", false, 2, 7))
	assert.Equal(t, "A 007", FormatIdentifier("A", true, 3, 7))
	assert.Equal(t, "A 1234", FormatIdentifier("A", true, 3, 1234))
}

func TestVersions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	doc := e.motion(t, alice, func(in *CreateDocumentInput) {
		in.WorkflowID = e.workflowID(t, "Complex Workflow")
	})
	id := doc.DocumentID

	v, err := e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Text", Reason: "Reason"}, nil, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, uint64(0), e.reload(t, id).Revision)

	v, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Better text"}, nil, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)
	reloaded := e.reload(t, id)
	require.Len(t, reloaded.Versions, 1)
	assert.Equal(t, "Better text", reloaded.Versions[0].Text)

	_, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Mine"}, nil, bob)
	assertKind(t, err, types.KindForbidden)

	_, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: ""}, nil, alice)
	assertKind(t, err, types.KindInvalidInput)

	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "permitted"}, nil, admin))

	v, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Amended"}, nil, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)
	require.NotNil(t, v.Identifier)

	reloaded = e.reload(t, id)
	require.Len(t, reloaded.Versions, 2)
	assert.Equal(t, 1, reloaded.Active().VersionNumber)

	v, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Amended again"}, nil, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, v.VersionNumber)
	assert.Equal(t, 1, e.reload(t, id).Active().VersionNumber)

	err = e.lifecycle.PermitVersion(ctx, id, 3, nil, alice)
	assertKind(t, err, types.KindForbidden)
	require.NoError(t, e.lifecycle.PermitVersion(ctx, id, 3, nil, admin))
	assert.Equal(t, 3, e.reload(t, id).Active().VersionNumber)

	err = e.lifecycle.PermitVersion(ctx, id, 9, nil, admin)
	assertKind(t, err, types.KindNotFound)

	err = e.lifecycle.RejectVersion(ctx, id, 3, nil, admin)
	assertKind(t, err, types.KindInvalidInput)
	require.NoError(t, e.lifecycle.RejectVersion(ctx, id, 2, nil, admin))
	assert.True(t, e.reload(t, id).Versions[1].Rejected)

	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, admin))
	_, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Too late"}, nil, alice)
	assertKind(t, err, types.KindInvalidTransition)

	v, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Editorial"}, nil, admin)
	require.NoError(t, err)
	assert.Equal(t, 4, v.VersionNumber)
	assert.Equal(t, 4, e.reload(t, id).Active().VersionNumber)
}

func TestRemoveSupportersOnEdit(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.MinSupporters = 1
		a.RemoveSupportersOnEdit = true
	})
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, bob))
	_, err := e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Changed"}, nil, admin)
	require.NoError(t, err)
	assert.Len(t, e.reload(t, id).Supporters, 1)

	_, err = e.lifecycle.CreateVersion(ctx, id, VersionInput{Title: "Motion", Text: "Changed again"}, nil, alice)
	require.NoError(t, err)
	assert.Empty(t, e.reload(t, id).Supporters)
}

func TestRecommendations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	err := e.lifecycle.FollowRecommendation(ctx, id, nil, admin)
	assertKind(t, err, types.KindInvalidInput)

	err = e.lifecycle.SetRecommendation(ctx, id, &StateRef{Name: "rejected"}, nil, alice)
	assertKind(t, err, types.KindForbidden)

	err = e.lifecycle.SetRecommendation(ctx, id, &StateRef{Name: "submitted"}, nil, admin)
	assertKind(t, err, types.KindInvalidInput)

	require.NoError(t, e.lifecycle.SetRecommendation(ctx, id, &StateRef{Name: "rejected"}, nil, admin))
	reloaded := e.reload(t, id)
	require.NotNil(t, reloaded.Recommendation)
	assert.Equal(t, "Rejection", reloaded.Recommendation.RecommendationLabel)

	require.NoError(t, e.lifecycle.SetRecommendation(ctx, id, nil, nil, admin))
	assert.Nil(t, e.reload(t, id).RecommendationID)

	require.NoError(t, e.lifecycle.SetRecommendation(ctx, id, &StateRef{Name: "not decided"}, nil, admin))
	require.NoError(t, e.lifecycle.FollowRecommendation(ctx, id, nil, admin))
	assert.Equal(t, "not decided", e.stateName(t, id))
}

func TestDeleteDocument(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	own := e.motion(t, alice)
	err := e.lifecycle.DeleteDocument(ctx, own.DocumentID, nil, bob)
	assertKind(t, err, types.KindForbidden)
	require.NoError(t, e.lifecycle.DeleteDocument(ctx, own.DocumentID, nil, alice))
	_, err = e.lifecycle.GetDocument(ctx, own.DocumentID)
	assertKind(t, err, types.KindNotFound)

	decided := e.motion(t, alice)
	require.NoError(t, e.lifecycle.SetState(ctx, decided.DocumentID, StateRef{Name: "accepted"}, nil, alice))
	err = e.lifecycle.DeleteDocument(ctx, decided.DocumentID, nil, alice)
	assertKind(t, err, types.KindForbidden)

	polled := e.motion(t, alice)
	_, err = e.lifecycle.CreatePoll(ctx, polled.DocumentID, nil, nil, admin)
	require.NoError(t, err)
	require.NoError(t, e.lifecycle.DeleteDocument(ctx, polled.DocumentID, nil, admin))

	var polls, options, versions int64
	require.NoError(t, e.db.Model(&models.Poll{}).Count(&polls).Error)
	require.NoError(t, e.db.Model(&models.Option{}).Count(&options).Error)
	require.NoError(t, e.db.Model(&models.Version{}).Where("document_id = ?", polled.DocumentID).Count(&versions).Error)
	assert.Zero(t, polls)
	assert.Zero(t, options)
	assert.Zero(t, versions)

	docs, err := e.lifecycle.ListDocuments(ctx, models.KindMotion)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, decided.DocumentID, docs[0].DocumentID)

	_, err = e.lifecycle.ListDocuments(ctx, "resolution")
	assertKind(t, err, types.KindInvalidInput)
}

func TestAllowedActions(t *testing.T) {
	e := newEngine(t, func(a *config.Assembly) {
		a.MinSupporters = 1
	})
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	actions, err := e.lifecycle.AllowedActions(ctx, id, alice)
	require.NoError(t, err)
	assert.Contains(t, actions, ActionEdit)
	assert.Contains(t, actions, ActionDelete)
	assert.NotContains(t, actions, ActionSupport)
	assert.NotContains(t, actions, ActionSetStatePrefix+"accepted")

	actions, err = e.lifecycle.AllowedActions(ctx, id, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{ActionSupport}, actions)

	require.NoError(t, e.lifecycle.Support(ctx, id, "", nil, bob))
	actions, err = e.lifecycle.AllowedActions(ctx, id, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{ActionUnsupport}, actions)

	actions, err = e.lifecycle.AllowedActions(ctx, id, alice)
	require.NoError(t, err)
	assert.Contains(t, actions, ActionSetStatePrefix+"accepted")

	actions, err = e.lifecycle.AllowedActions(ctx, id, admin)
	require.NoError(t, err)
	for _, want := range []string{ActionEdit, ActionDelete, ActionCreatePoll, ActionResetState, ActionSetRecommendation, ActionSetStatePrefix + "rejected"} {
		assert.Contains(t, actions, want)
	}
	assert.NotContains(t, actions, ActionSetIdentifier)
}

func TestAuditLog(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, alice))
	before := len(e.audit.messages())
	err := e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, alice)
	require.Error(t, err)
	assert.Len(t, e.audit.messages(), before, "rejected operations leave no history")

	_, err = e.lifecycle.AuditLog(ctx, id, alice)
	assertKind(t, err, types.KindForbidden)

	entries, err := e.lifecycle.AuditLog(ctx, id, admin)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Document created", entries[0].Message)
	assert.Equal(t, "Identifier set", entries[1].Message)
	assert.Equal(t, entries[0].OperationID, entries[1].OperationID)
	assert.Equal(t, "State changed", entries[2].Message)
	assert.Equal(t, "alice", entries[2].ActorID)
	assert.JSONEq(t, `{"from":"submitted","to":"accepted"}`, string(entries[2].Data.JSON))
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.motion(t, alice).DocumentID

	require.NoError(t, e.db.Migrator().DropTable(&models.AuditEntry{}))
	require.NoError(t, e.lifecycle.SetState(ctx, id, StateRef{Name: "accepted"}, nil, alice))
	assert.Equal(t, "accepted", e.stateName(t, id))
}

func TestCategories(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.lifecycle.CreateCategory(ctx, "Finance", "F", alice)
	assertKind(t, err, types.KindForbidden)

	_, err = e.lifecycle.CreateCategory(ctx, "Statutes", "S", admin)
	require.NoError(t, err)
	_, err = e.lifecycle.CreateCategory(ctx, "Finance", "F", admin)
	require.NoError(t, err)
	_, err = e.lifecycle.CreateCategory(ctx, "Finance", "X", admin)
	assertKind(t, err, types.KindInvalidInput)
	_, err = e.lifecycle.CreateCategory(ctx, " ", "X", admin)
	assertKind(t, err, types.KindInvalidInput)

	cats, err := e.lifecycle.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Finance", cats[0].Name)
	assert.Equal(t, "Statutes", cats[1].Name)
}
