package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/google/uuid"
	"github.com/tj/assert"
)

const region = "eu-west-2"

type sentMail struct {
	to, roomID, adminLink, guestLink string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendAdminLink(_ context.Context, to, roomID, adminLink, guestLink string) error {
	f.sent = append(f.sent, sentMail{to, roomID, adminLink, guestLink})
	return f.err
}

func newUserID() string {
	return region + ":" + uuid.NewString()
}

func newService(t *testing.T) (*Service, *MemoryStore, *fakeMailer) {
	t.Helper()
	var (
		store  = NewMemoryStore()
		mailer = &fakeMailer{}
		now    = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		tokens int
	)
	service := New(store, mailer, Config{
		Zone: "clearchat.cc",
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		NewToken: func() string {
			tokens++
			return fmt.Sprintf("token-%d", tokens)
		},
	})
	return service, store, mailer
}

var acmeGrant = model.Grant{Mode: model.GrantModeLink, Text: "https://video.example/acme"}

func claim(t *testing.T, service *Service, roomID string) model.Room {
	t.Helper()
	ctx := context.Background()
	result, err := service.ClaimRoom(ctx, ClaimRequest{
		RoomID: roomID,
		Grant:  acmeGrant,
		Admin:  ClaimAdmin{Mode: model.AdminModeLink},
	}, "127.0.0.1")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	room, err := service.GetRoom(ctx, roomID)
	assert.NoError(t, err)
	return *room
}

func TestClaimRoom(t *testing.T) {
	var (
		ctx             = context.Background()
		service, _, mlr = newService(t)
		req             = ClaimRequest{
			RoomID: "acme-demo",
			Grant:  acmeGrant,
			Admin:  ClaimAdmin{Mode: model.AdminModeLink},
		}
	)

	result, err := service.ClaimRoom(ctx, req, "127.0.0.1")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "https://acme-demo.clearchat.cc/?admin=token-1", result.AdminLink)
	assert.Equal(t, "https://acme-demo.clearchat.cc", result.GuestLink)
	assert.False(t, strings.Contains(result.GuestLink, "?"))
	assert.Len(t, mlr.sent, 0)

	room, err := service.GetRoom(ctx, "acme-demo")
	assert.NoError(t, err)
	assert.Equal(t, "token-1", room.AdminToken)
	assert.Equal(t, "127.0.0.1", room.Creator)
	assert.Equal(t, acmeGrant, room.Grant)

	result, err = service.ClaimRoom(ctx, req, "127.0.0.1")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, RoomNotAvailable, result.Reason)

	room, err = service.GetRoom(ctx, "acme-demo")
	assert.NoError(t, err)
	assert.Equal(t, "token-1", room.AdminToken)
}

func TestClaimRoomEmail(t *testing.T) {
	var (
		ctx             = context.Background()
		service, _, mlr = newService(t)
	)

	result, err := service.ClaimRoom(ctx, ClaimRequest{
		RoomID: "acme",
		Grant:  acmeGrant,
		Admin:  ClaimAdmin{Mode: model.AdminModeEmail, Email: "ops@acme.example"},
	}, "127.0.0.1")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, mlr.sent, 1)
	assert.Equal(t, sentMail{"ops@acme.example", "acme", result.AdminLink, result.GuestLink}, mlr.sent[0])

	room, err := service.GetRoom(ctx, "acme")
	assert.NoError(t, err)
	assert.Equal(t, "ops@acme.example", room.Email)
}

func TestClaimRoomReasons(t *testing.T) {
	testCases := map[string]struct {
		Request ClaimRequest
		Want    ClaimReason
	}{
		"upper case": {
			Request: ClaimRequest{RoomID: "Acme", Grant: acmeGrant, Admin: ClaimAdmin{Mode: model.AdminModeLink}},
			Want:    RoomNotValid,
		},
		"empty": {
			Request: ClaimRequest{RoomID: "", Grant: acmeGrant, Admin: ClaimAdmin{Mode: model.AdminModeLink}},
			Want:    RoomNotValid,
		},
		"reserved": {
			Request: ClaimRequest{RoomID: "www", Grant: acmeGrant, Admin: ClaimAdmin{Mode: model.AdminModeLink}},
			Want:    RoomNotAvailable,
		},
		"admin mode": {
			Request: ClaimRequest{RoomID: "acme", Grant: acmeGrant, Admin: ClaimAdmin{Mode: "SMS"}},
			Want:    AdminModeNotValid,
		},
		"email": {
			Request: ClaimRequest{RoomID: "acme", Grant: acmeGrant, Admin: ClaimAdmin{Mode: model.AdminModeEmail, Email: "not-an-email"}},
			Want:    EmailNotValid,
		},
		"missing email": {
			Request: ClaimRequest{RoomID: "acme", Grant: acmeGrant, Admin: ClaimAdmin{Mode: model.AdminModeEmail}},
			Want:    EmailNotValid,
		},
		"grant mode": {
			Request: ClaimRequest{RoomID: "acme", Grant: model.Grant{Mode: "VIDEO"}, Admin: ClaimAdmin{Mode: model.AdminModeLink}},
			Want:    GrantNotValid,
		},
		"grant text": {
			Request: ClaimRequest{RoomID: "acme", Grant: model.Grant{Mode: model.GrantModeText, Text: strings.Repeat("a", model.MaxGrantText+1)}, Admin: ClaimAdmin{Mode: model.AdminModeLink}},
			Want:    GrantNotValid,
		},
	}

	for label, tc := range testCases {
		t.Run(label, func(t *testing.T) {
			service, store, mlr := newService(t)
			result, err := service.ClaimRoom(context.Background(), tc.Request, "127.0.0.1")
			assert.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tc.Want, result.Reason)
			assert.Len(t, store.rooms, 0)
			assert.Len(t, mlr.sent, 0)
		})
	}
}

func TestClaimRoomMailFailure(t *testing.T) {
	service, _, mlr := newService(t)
	mlr.err = errors.New("boom")

	_, err := service.ClaimRoom(context.Background(), ClaimRequest{
		RoomID: "acme",
		Grant:  acmeGrant,
		Admin:  ClaimAdmin{Mode: model.AdminModeEmail, Email: "ops@acme.example"},
	}, "127.0.0.1")
	assert.Error(t, err)
}

func TestCheckRoomAvailability(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
	)
	claim(t, service, "taken")

	for roomID, want := range map[string]bool{
		"free":      true,
		"taken":     false,
		"www":       false,
		"Bad Room":  false,
		"":          false,
		"free-room": true,
	} {
		got, err := service.CheckRoomAvailability(ctx, roomID)
		assert.NoError(t, err)
		assert.Equal(t, want, got, roomID)
	}
}

func assertGrantInvariant(t *testing.T, guests ...model.Guest) {
	t.Helper()
	for _, g := range guests {
		assert.Equal(t, g.State == model.GuestGranted, g.Grant != nil, g.UserID)
	}
}

func TestGuestAdmission(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room          = claim(t, service, "acme-demo")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
		alex          = Identity{RoomID: room.RoomID, UserID: newUserID()}
	)

	guest, err := service.CreateGuest(ctx, alex, "Alex")
	assert.NoError(t, err)
	assert.Equal(t, model.GuestPending, guest.State)
	assert.Equal(t, guest.CreatedTime, guest.RequestedAccessTime)
	assert.Nil(t, guest.Grant)

	guest, err = service.SetGuestState(ctx, admin, alex.UserID, model.GuestGranted)
	assert.NoError(t, err)
	assert.Equal(t, model.GuestGranted, guest.State)
	assert.Equal(t, room.Grant, *guest.Grant)

	newGrant := model.Grant{Mode: model.GrantModeLink, Text: "https://video.example/acme-2"}
	updated, err := service.UpdateRoomGrant(ctx, admin, newGrant)
	assert.NoError(t, err)
	assert.Len(t, updated, 1)
	assert.Equal(t, newGrant, *updated[0].Grant)

	guest, err = service.GetGuest(ctx, alex)
	assert.NoError(t, err)
	assert.Equal(t, model.GuestGranted, guest.State)
	assert.Equal(t, newGrant, *guest.Grant)

	guest, err = service.SetGuestState(ctx, admin, alex.UserID, model.GuestDenied)
	assert.NoError(t, err)
	assert.Equal(t, model.GuestDenied, guest.State)
	assert.Nil(t, guest.Grant)

	_, err = service.SetGuestState(ctx, admin, alex.UserID, model.GuestPending)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	guest, err = service.SetGuestState(ctx, admin, alex.UserID, model.GuestGranted)
	assert.NoError(t, err)
	assert.Equal(t, newGrant, *guest.Grant)
}

func TestGrantInvariant(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room          = claim(t, service, "acme")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
		guests        []Identity
	)
	for i := 0; i < 4; i++ {
		id := Identity{RoomID: room.RoomID, UserID: newUserID()}
		_, err := service.CreateGuest(ctx, id, fmt.Sprintf("guest-%d", i))
		assert.NoError(t, err)
		guests = append(guests, id)
	}

	steps := []struct {
		guest int
		state model.GuestState
	}{
		{0, model.GuestGranted},
		{1, model.GuestDenied},
		{2, model.GuestGranted},
		{0, model.GuestDenied},
		{1, model.GuestGranted},
		{2, model.GuestGranted},
	}
	for _, step := range steps {
		_, err := service.SetGuestState(ctx, admin, guests[step.guest].UserID, step.state)
		assert.NoError(t, err)

		all, err := service.ListGuests(ctx, admin)
		assert.NoError(t, err)
		assertGrantInvariant(t, all...)
	}

	updated, err := service.UpdateRoomGrant(ctx, admin, model.Grant{Mode: model.GrantModeText, Text: "s3cret"})
	assert.NoError(t, err)
	assert.Len(t, updated, 2)

	all, err := service.ListGuests(ctx, admin)
	assert.NoError(t, err)
	assertGrantInvariant(t, all...)
	for _, g := range all {
		if g.State == model.GuestGranted {
			assert.Equal(t, "s3cret", g.Grant.Text)
		}
	}
}

func TestSetGuestStateNotFound(t *testing.T) {
	var (
		service, _, _ = newService(t)
		room          = claim(t, service, "acme")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
	)
	_, err := service.SetGuestState(context.Background(), admin, newUserID(), model.GuestGranted)
	assert.True(t, errors.Is(err, ErrGuestNotFound))
}

func TestUpdateRoomGrantInvalid(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room          = claim(t, service, "acme")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
	)

	guests, err := service.UpdateRoomGrant(ctx, admin, model.Grant{Mode: "VIDEO", Text: "x"})
	assert.True(t, errors.Is(err, model.ErrGrantInvalid))
	assert.NotNil(t, guests)
	assert.Len(t, guests, 0)

	after, err := service.GetRoom(ctx, room.RoomID)
	assert.NoError(t, err)
	assert.Equal(t, room.Grant, after.Grant)
}

func TestCreateGuestTwice(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room          = claim(t, service, "acme")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
		alex          = Identity{RoomID: room.RoomID, UserID: newUserID()}
	)

	_, err := service.CreateGuest(ctx, alex, "Alex")
	assert.NoError(t, err)
	_, err = service.SetGuestState(ctx, admin, alex.UserID, model.GuestGranted)
	assert.NoError(t, err)

	guest, err := service.CreateGuest(ctx, alex, "Alexandra")
	assert.NoError(t, err)
	assert.Equal(t, "Alex", guest.Name)
	assert.Equal(t, model.GuestGranted, guest.State)

	_, err = service.CreateGuest(ctx, admin, "Admin")
	assert.True(t, errors.Is(err, ErrAdminGuest))
}

func TestMessages(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room          = claim(t, service, "acme")
		admin         = Identity{RoomID: room.RoomID, UserID: newUserID(), IsAdmin: true}
		alex          = Identity{RoomID: room.RoomID, UserID: newUserID()}
		sam           = Identity{RoomID: room.RoomID, UserID: newUserID()}
	)
	for _, id := range []Identity{alex, sam} {
		_, err := service.CreateGuest(ctx, id, "guest")
		assert.NoError(t, err)
	}

	message, guest, err := service.StoreMessage(ctx, alex, MessageToSend{Content: "hello", Direction: model.DirectionIn})
	assert.NoError(t, err)
	assert.Equal(t, alex.UserID, message.UserID)
	assert.Equal(t, message.CreatedTime, guest.MessageSentByUserTime)
	assert.True(t, guest.HasUnreadMessages())

	message, guest, err = service.StoreMessage(ctx, admin, MessageToSend{UserID: alex.UserID, Content: strings.Repeat("x", 300), Direction: model.DirectionOut})
	assert.NoError(t, err)
	assert.Equal(t, alex.UserID, message.UserID)
	assert.Equal(t, model.MaxMessageContent, len(message.Content))
	assert.Equal(t, alex.UserID, guest.UserID)

	_, _, err = service.StoreMessage(ctx, sam, MessageToSend{Content: "from sam", Direction: model.DirectionIn})
	assert.NoError(t, err)

	mine, err := service.GetMessages(ctx, alex)
	assert.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, model.DirectionIn, mine[0].Direction)
	assert.Equal(t, model.DirectionOut, mine[1].Direction)

	all, err := service.GetRoomMessages(ctx, admin)
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	read, err := service.MarkGuestRead(ctx, admin, alex.UserID)
	assert.NoError(t, err)
	assert.False(t, read.HasUnreadMessages())

	t.Run("guest can not send out", func(t *testing.T) {
		_, _, err := service.StoreMessage(ctx, alex, MessageToSend{UserID: sam.UserID, Content: "hi", Direction: model.DirectionOut})
		assert.True(t, errors.Is(err, ErrNotAdmin))
	})

	t.Run("bad direction", func(t *testing.T) {
		_, _, err := service.StoreMessage(ctx, alex, MessageToSend{Content: "hi", Direction: "SIDEWAYS"})
		assert.True(t, errors.Is(err, ErrMessageInvalid))
	})

	t.Run("unregistered guest", func(t *testing.T) {
		stranger := Identity{RoomID: room.RoomID, UserID: newUserID()}
		_, _, err := service.StoreMessage(ctx, stranger, MessageToSend{Content: "hi", Direction: model.DirectionIn})
		assert.True(t, errors.Is(err, ErrGuestNotFound))
	})
}

func seedRoom(t *testing.T, service *Service, roomID string, guests, messages int) (model.Room, Identity) {
	t.Helper()
	var (
		ctx   = context.Background()
		room  = claim(t, service, roomID)
		admin = Identity{RoomID: roomID, UserID: newUserID(), IsAdmin: true}
		ids   []Identity
	)
	for i := 0; i < guests; i++ {
		id := Identity{RoomID: roomID, UserID: newUserID()}
		_, err := service.CreateGuest(ctx, id, fmt.Sprintf("guest-%d", i))
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	for i := 0; i < messages; i++ {
		_, _, err := service.StoreMessage(ctx, ids[i%len(ids)], MessageToSend{Content: fmt.Sprintf("message %d", i), Direction: model.DirectionIn})
		assert.NoError(t, err)
	}
	return room, admin
}

func TestResetRoom(t *testing.T) {
	var (
		ctx           = context.Background()
		service, _, _ = newService(t)
		room, admin   = seedRoom(t, service, "acme", 3, 10)
	)

	guests, err := service.ResetRoom(ctx, admin)
	assert.NoError(t, err)
	assert.Len(t, guests, 3)

	remaining, err := service.ListGuests(ctx, admin)
	assert.NoError(t, err)
	assert.Len(t, remaining, 0)

	messages, err := service.GetRoomMessages(ctx, admin)
	assert.NoError(t, err)
	assert.Len(t, messages, 0)

	details, err := service.GetRoomDetails(ctx, admin)
	assert.NoError(t, err)
	assert.Equal(t, room.AdminToken, details.AdminToken)
	assert.Equal(t, room.Grant, details.Grant)
	assert.Equal(t, room.CreatedTime, details.CreatedTime)
	assert.True(t, details.AccessedTime > room.AccessedTime)
}

func TestDeleteRoom(t *testing.T) {
	var (
		ctx               = context.Background()
		service, store, _ = newService(t)
		_, admin          = seedRoom(t, service, "acme", 2, 4)
	)
	seedRoom(t, service, "other", 1, 1)

	guests, err := service.DeleteRoom(ctx, admin)
	assert.NoError(t, err)
	assert.Len(t, guests, 2)

	_, err = service.GetRoom(ctx, "acme")
	assert.True(t, errors.Is(err, ErrRoomNotFound))
	available, err := service.CheckRoomAvailability(ctx, "acme")
	assert.NoError(t, err)
	assert.True(t, available)

	assert.Len(t, store.messages, 1)
	_, err = service.GetRoom(ctx, "other")
	assert.NoError(t, err)
}

func TestAdminOnly(t *testing.T) {
	var (
		ctx               = context.Background()
		service, store, _ = newService(t)
		room, admin       = seedRoom(t, service, "acme", 2, 3)
		guest             = Identity{RoomID: room.RoomID, UserID: newUserID()}
	)
	guests, err := service.ListGuests(ctx, admin)
	assert.NoError(t, err)
	target := guests[0].UserID

	snapshot := func() string {
		return fmt.Sprint(store.rooms, store.guests, len(store.messages))
	}
	before := snapshot()

	calls := map[string]func() error{
		"room details": func() error {
			_, err := service.GetRoomDetails(ctx, guest)
			return err
		},
		"room guests": func() error {
			_, err := service.ListGuests(ctx, guest)
			return err
		},
		"room messages": func() error {
			_, err := service.GetRoomMessages(ctx, guest)
			return err
		},
		"set grant": func() error {
			_, err := service.UpdateRoomGrant(ctx, guest, model.Grant{Mode: model.GrantModeText, Text: "x"})
			return err
		},
		"set state": func() error {
			_, err := service.SetGuestState(ctx, guest, target, model.GuestGranted)
			return err
		},
		"mark read": func() error {
			_, err := service.MarkGuestRead(ctx, guest, target)
			return err
		},
		"delete": func() error {
			_, err := service.DeleteRoom(ctx, guest)
			return err
		},
		"reset": func() error {
			_, err := service.ResetRoom(ctx, guest)
			return err
		},
	}
	for label, call := range calls {
		t.Run(label, func(t *testing.T) {
			assert.True(t, errors.Is(call(), ErrNotAdmin))
			assert.Equal(t, before, snapshot())
		})
	}
}
