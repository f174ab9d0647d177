package attendance_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/attendance"
	"kiosk/internal/recognition"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fakeArchive struct {
	err  error
	ids  []string
	data [][]byte
}

func (f *fakeArchive) Archive(_ context.Context, id string, data []byte) (string, error) {
	f.ids = append(f.ids, id)
	f.data = append(f.data, data)
	if f.err != nil {
		return "", f.err
	}
	return "https://photos.example/" + id + ".jpg", nil
}

func pngPhoto(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newService(opts ...attendance.Option) (*attendance.Service, *attendance.MemoryStore) {
	store := attendance.NewMemoryStore()
	clock := &stepClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	opts = append([]attendance.Option{attendance.WithClock(clock.now)}, opts...)
	return attendance.NewService(store, opts...), store
}

func TestRegisterEmployee(t *testing.T) {
	archive := &fakeArchive{}
	svc, _ := newService(attendance.WithArchive(archive))
	ctx := context.Background()

	e, err := svc.RegisterEmployee(ctx, "  Jane Doe ", pngPhoto(t, 90), "")
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Jane Doe", e.Name)
	assert.Equal(t, "image/png", e.ReferenceMIME)
	assert.Equal(t, "https://photos.example/"+e.ID+".jpg", e.PhotoURL)
	assert.Equal(t, []string{e.ID}, archive.ids)
}

func TestRegisterEmployee_Validation(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.RegisterEmployee(ctx, " ", jpegPhoto(t), "image/jpeg")
	assert.ErrorIs(t, err, attendance.ErrNameRequired)

	_, err = svc.RegisterEmployee(ctx, "Jane", nil, "image/jpeg")
	assert.ErrorIs(t, err, attendance.ErrPhotoRequired)

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegisterEmployee_RejectsUndecodablePhoto(t *testing.T) {
	archive := &fakeArchive{}
	svc, store := newService(attendance.WithArchive(archive))
	ctx := context.Background()

	for _, photo := range [][]byte{
		[]byte("not an image"),
		[]byte("\x89PNG\r\n\x1a\ntruncated"),
		[]byte("%PDF-1.7"),
	} {
		_, err := svc.RegisterEmployee(ctx, "Jane", photo, "image/png")
		assert.ErrorIs(t, err, attendance.ErrInvalidPhoto, "%q", photo)
	}

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, archive.ids)
}

func TestRegisterEmployee_MIMEFollowsDecodedFormat(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	e, err := svc.RegisterEmployee(ctx, "Jane", pngPhoto(t, 10), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/png", e.ReferenceMIME)

	e, err = svc.RegisterEmployee(ctx, "John", jpegPhoto(t), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", e.ReferenceMIME)
}

func TestRegisterEmployee_ArchiveFailureIsNotFatal(t *testing.T) {
	svc, _ := newService(attendance.WithArchive(&fakeArchive{err: errors.New("cloud down")}))

	e, err := svc.RegisterEmployee(context.Background(), "Jane", jpegPhoto(t), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, e.PhotoURL)

	list, err := svc.Employees(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGallery_MostRecentFirst(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	var ids []string
	var photos [][]byte
	for i, name := range []string{"A", "B", "C"} {
		photo := pngPhoto(t, uint8(40*(i+1)))
		e, err := svc.RegisterEmployee(ctx, name, photo, "image/png")
		require.NoError(t, err)
		ids = append(ids, e.ID)
		photos = append(photos, photo)
	}

	refs, err := svc.Gallery(ctx, 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, ids[2], refs[0].EmployeeID)
	assert.Equal(t, "B", refs[1].Name)
	assert.Equal(t, photos[2], refs[0].Data)
	assert.Equal(t, "image/png", refs[0].MIMEType)

	all, err := svc.Gallery(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGallery_Empty(t *testing.T) {
	svc, _ := newService()
	refs, err := svc.Gallery(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestRecordCheckIn(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	evt, err := svc.RecordCheckIn(ctx, recognition.Outcome{Matched: true, EmployeeID: "E1", EmployeeName: "Jane", Confidence: 0.91})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, attendance.KindCheckIn, evt.Kind)
	assert.Equal(t, "Jane", evt.EmployeeName)
	assert.InDelta(t, 0.91, evt.Confidence, 1e-9)
	assert.False(t, evt.Timestamp.IsZero())

	_, err = svc.RecordCheckIn(ctx, recognition.Outcome{Matched: false})
	assert.ErrorIs(t, err, attendance.ErrNotMatched)

	events, err := svc.Events(ctx, attendance.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRemoveEmployee(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	e, err := svc.RegisterEmployee(ctx, "Jane", jpegPhoto(t), "image/jpeg")
	require.NoError(t, err)
	_, err = svc.RecordCheckIn(ctx, recognition.Outcome{Matched: true, EmployeeID: e.ID, EmployeeName: e.Name, Confidence: 1})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveEmployee(ctx, e.ID))
	assert.ErrorIs(t, svc.RemoveEmployee(ctx, e.ID), attendance.ErrNotFound)

	events, err := svc.Events(ctx, attendance.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Jane", events[0].EmployeeName)
}
