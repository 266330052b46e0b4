package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/lensdistort/rimage"
)

const testParams = `{
  "intrinsic_parameters": {"width_px": 32, "height_px": 24, "fx": 30, "fy": 30, "ppx": 15.5, "ppy": 11.5},
  "distortion_coefficients": [-0.15, 0.01, 0, 0, 0],
  "mapper": {"interpolation": "linear"}
}`

func writeFixtures(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 8), uint8(y * 10), 90, 255})
		}
	}
	input := filepath.Join(dir, "input.png")
	test.That(t, rimage.WriteImageToFile(input, img), test.ShouldBeNil)
	params := filepath.Join(dir, "params.json")
	test.That(t, os.WriteFile(params, []byte(testParams), 0o600), test.ShouldBeNil)
	return dir, input, params
}

func TestRun(t *testing.T) {
	dir, input, params := writeFixtures(t)
	var out bytes.Buffer

	output := filepath.Join(dir, "distorted.qoi")
	err := newApp(&out).Run([]string{"distort", "run", "--input", input, "--output", output, "--params", params})
	test.That(t, err, test.ShouldBeNil)
	img, err := rimage.ReadImageFromFile(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 32, 24))

	output = filepath.Join(dir, "distorted.ppm")
	err = newApp(&out).Run([]string{"distort", "run", "--input", input, "--output", output, "--params", params})
	test.That(t, err, test.ShouldBeNil)
	img, err = rimage.ReadImageFromFile(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 32, 24))

	resized := filepath.Join(dir, "resized.png")
	err = newApp(&out).Run([]string{
		"distort", "--debug", "run", "-i", input, "-o", resized, "-p", params,
		"--width", "40", "--height", "10", "--direction", "remove", "--border", "constant", "--border-color", "#ff0000",
	})
	test.That(t, err, test.ShouldBeNil)
	img, err = rimage.ReadImageFromFile(resized)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 40, 10))
	r, g, b, a := img.At(39, 0).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8, b >> 8, a >> 8}, test.ShouldResemble, []uint32{255, 0, 0, 255})

	err = newApp(&out).Run([]string{"distort", "run", "-i", input, "-o", resized, "-p", params, "--border", "mirror"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `flags: invalid "border"`)

	err = newApp(&out).Run([]string{"distort", "run", "-i", input, "-o", filepath.Join(dir, "x.webp"), "-p", params})
	test.That(t, err, test.ShouldNotBeNil)

	err = newApp(&out).Run([]string{"distort", "run", "-i", input, "-o", resized})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMap(t *testing.T) {
	dir, _, params := writeFixtures(t)
	var out bytes.Buffer

	err := newApp(&out).Run([]string{"distort", "map", "-p", params})
	test.That(t, err, test.ShouldBeNil)
	var report mapReport
	test.That(t, json.Unmarshal(out.Bytes(), &report), test.ShouldBeNil)
	test.That(t, report.Width, test.ShouldEqual, 32)
	test.That(t, report.Height, test.ShouldEqual, 24)
	test.That(t, report.Direction, test.ShouldEqual, "apply")
	test.That(t, report.Stats.MaxDisplacement, test.ShouldBeGreaterThan, 0)
	test.That(t, report.Displacement.Median, test.ShouldBeGreaterThan, 0)
	test.That(t, report.Displacement.P95, test.ShouldBeBetweenOrEqual, report.Displacement.Median, report.Stats.MaxDisplacement)

	statsPath := filepath.Join(dir, "stats.json")
	err = newApp(&out).Run([]string{"distort", "map", "-p", params, "--direction", "remove", "--width", "8", "-o", statsPath})
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(statsPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, json.Unmarshal(data, &report), test.ShouldBeNil)
	test.That(t, report.Width, test.ShouldEqual, 8)
	test.That(t, report.Direction, test.ShouldEqual, "remove")

	plotPath := filepath.Join(dir, "displacement.png")
	err = newApp(&out).Run([]string{"distort", "map", "-p", params, "-o", statsPath, "--plot", plotPath})
	test.That(t, err, test.ShouldBeNil)
	plotted, err := rimage.ReadImageFromFile(plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plotted.Bounds().Dx(), test.ShouldBeGreaterThan, 0)
}

func TestCompare(t *testing.T) {
	dir, input, _ := writeFixtures(t)
	var out bytes.Buffer

	err := newApp(&out).Run([]string{"distort", "compare", input, input})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual,
		"pixels=768 mean_lab_distance=0.000000 max_channel_delta=0 alpha_mismatches=0\n")

	out.Reset()
	err = newApp(&out).Run([]string{"distort", "compare", "--margin", "4", input, input})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldStartWith, "pixels=384 ")

	err = newApp(&out).Run([]string{"distort", "compare", "--margin", "12", input, input})
	test.That(t, err, test.ShouldBeError, "margin 12 leaves nothing to compare")

	err = newApp(&out).Run([]string{"distort", "compare", input})
	test.That(t, err, test.ShouldBeError, "compare needs <image a> <image b>")

	err = newApp(&out).Run([]string{"distort", "compare", input, filepath.Join(dir, "missing.png")})
	test.That(t, err, test.ShouldNotBeNil)
}
