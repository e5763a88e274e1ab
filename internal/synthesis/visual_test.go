package synthesis

import (
	"context"
	"strings"
	"testing"
	"time"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T, a, b *fakeModel, images *fakeImages, objects *memObjects) *VisualExtractor {
	t.Helper()
	x, err := NewVisualExtractor([]provider.ModelProvider{a, b}, images, objects, nil)
	require.NoError(t, err)
	x.Now = func() time.Time { return time.UnixMilli(1700000000123) }
	return x
}

func samplePhoto() *Photo {
	return &Photo{Filename: "gyeongbok gung.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestDescribePhoto_CallsBothModelsConcurrently(t *testing.T) {
	const delay = 200 * time.Millisecond
	a := &fakeModel{id: "gemini-flash", vision: true, delay: delay, reply: "고궁 관람"}
	b := &fakeModel{id: "groq-scout", vision: true, delay: delay, reply: "한복 체험"}
	x := newTestExtractor(t, a, b, &fakeImages{id: "img"}, newMemObjects())

	start := time.Now()
	da, db, err := x.DescribePhoto(context.Background(), samplePhoto())
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, "고궁 관람", da)
	assert.Equal(t, "한복 체험", db)
	assert.Less(t, elapsed, delay+delay*3/4)

	for _, m := range []*fakeModel{a, b} {
		p := m.lastPayload()
		require.Len(t, p.Images, 1)
		assert.Equal(t, "image/jpeg", p.Images[0].MIMEType)
		assert.Equal(t, DefaultPromptSet().Vision, p.User)
	}
}

func TestDescribePhoto_EitherFailureFails(t *testing.T) {
	a := &fakeModel{id: "gemini-flash", vision: true, reply: "ok"}
	b := &fakeModel{id: "groq-scout", vision: true, err: errUpstream}
	x := newTestExtractor(t, a, b, &fakeImages{id: "img"}, newMemObjects())

	_, _, err := x.DescribePhoto(context.Background(), samplePhoto())
	var verr *VisionProviderError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "groq-scout", verr.Provider)
	assert.ErrorIs(t, err, errUpstream)
}

func TestDescribePhoto_EmptyDescriptionFails(t *testing.T) {
	a := &fakeModel{id: "a", vision: true, reply: "  "}
	b := &fakeModel{id: "b", vision: true, reply: "ok"}
	x := newTestExtractor(t, a, b, &fakeImages{id: "img"}, newMemObjects())

	_, _, err := x.DescribePhoto(context.Background(), samplePhoto())
	var verr *VisionProviderError
	assert.ErrorAs(t, err, &verr)
}

func TestSynthesizeImage_FindsImageInAnyPosition(t *testing.T) {
	text := provider.TextPart{Text: "풍경 사진입니다"}
	cases := map[string][]provider.Part{
		"first":             {pngPart(1, 2), text},
		"middle":            {text, pngPart(1, 2), text},
		"last":              {text, text, pngPart(1, 2)},
		"after empty image": {provider.ImagePart{MIMEType: "image/png"}, text, pngPart(1, 2)},
	}
	for name, parts := range cases {
		t.Run(name, func(t *testing.T) {
			objects := newMemObjects()
			x := newTestExtractor(t, &fakeModel{id: "a", vision: true}, &fakeModel{id: "b", vision: true}, &fakeImages{id: "gemini-image", parts: parts}, objects)
			req := &TripRequest{Destination: "제주", Purpose: "휴식", PeopleCount: 2}

			url, key, err := x.SynthesizeImage(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(key, "gen_1700000000123_"), key)
			assert.True(t, strings.HasSuffix(key, ".png"), key)
			assert.Equal(t, objects.PublicURL(key), url)
			assert.Equal(t, []byte{1, 2}, objects.objects[key])
		})
	}
}

func TestSynthesizeImage_NoImagePart(t *testing.T) {
	images := &fakeImages{id: "gemini-image", parts: []provider.Part{provider.TextPart{Text: "cannot draw"}}}
	objects := newMemObjects()
	x := newTestExtractor(t, &fakeModel{id: "a", vision: true}, &fakeModel{id: "b", vision: true}, images, objects)

	_, _, err := x.SynthesizeImage(context.Background(), &TripRequest{Destination: "제주", Purpose: "휴식", PeopleCount: 1})
	var ierr *ImageSynthesisError
	require.ErrorAs(t, err, &ierr)
	assert.Empty(t, objects.keys())
}

func TestSynthesizeImage_UploadFailure(t *testing.T) {
	objects := newMemObjects()
	objects.uploadErr = errUpstream
	x := newTestExtractor(t, &fakeModel{id: "a", vision: true}, &fakeModel{id: "b", vision: true},
		&fakeImages{id: "gemini-image", parts: []provider.Part{pngPart(9)}}, objects)

	_, _, err := x.SynthesizeImage(context.Background(), &TripRequest{Destination: "제주", Purpose: "휴식", PeopleCount: 1})
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "upload", serr.Op)
}

func TestExtract_NoPhotoNeverCallsVision(t *testing.T) {
	a := &fakeModel{id: "a", vision: true}
	b := &fakeModel{id: "b", vision: true}
	images := &fakeImages{id: "gemini-image", parts: []provider.Part{pngPart(7)}}
	x := newTestExtractor(t, a, b, images, newMemObjects())

	vc, err := x.Extract(context.Background(), &TripRequest{Destination: "강릉", Purpose: "바다", PeopleCount: 3, StartDate: types.NewDate(2025, 7, 1), EndDate: types.NewDate(2025, 7, 2)})
	require.NoError(t, err)
	assert.NotEmpty(t, vc.GeneratedImageURL)
	assert.Empty(t, vc.Descriptions())
	assert.Zero(t, a.calls.Load())
	assert.Zero(t, b.calls.Load())
	assert.Equal(t, int32(1), images.calls.Load())
}

func TestNewVisualExtractor_Checks(t *testing.T) {
	images := &fakeImages{id: "img"}
	objects := newMemObjects()
	_, err := NewVisualExtractor([]provider.ModelProvider{&fakeModel{id: "a", vision: true}}, images, objects, nil)
	assert.Error(t, err)

	_, err = NewVisualExtractor([]provider.ModelProvider{&fakeModel{id: "a", vision: true}, &fakeModel{id: "b"}}, images, objects, nil)
	assert.ErrorContains(t, err, "does not accept images")
}

func TestObjectKeys(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	assert.Equal(t, "1700000000000_my_trip.png", PhotoKey(now, "my trip.png"))
	assert.Equal(t, "1700000000000_evil.jpg", PhotoKey(now, "../../evil.jpg"))
	assert.Equal(t, "1700000000000_photo", PhotoKey(now, ""))

	key := GeneratedImageKey(now, "image/jpeg")
	assert.Regexp(t, `^gen_1700000000000_[0-9a-f]{8}\.jpg$`, key)
}
