package pipeline

import (
	"testing"

	"go.viam.com/test"
)

func TestStageOrdinal(t *testing.T) {
	ord, err := StageStereo.Ordinal()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ord, test.ShouldEqual, 0)
	ord, err = StagePCFilter.Ordinal()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ord, test.ShouldEqual, 1)
	ord, err = StageMeshGen.Ordinal()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ord, test.ShouldEqual, 2)

	_, err = Stage("texture").Ordinal()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "texture")
}

func TestNewStageRange(t *testing.T) {
	full, err := NewStageRange("", "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, full.Includes(StageStereo), test.ShouldBeTrue)
	test.That(t, full.Includes(StagePCFilter), test.ShouldBeTrue)
	test.That(t, full.Includes(StageMeshGen), test.ShouldBeTrue)

	tail, err := NewStageRange("pc_filter", "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tail.Includes(StageStereo), test.ShouldBeFalse)
	test.That(t, tail.Includes(StagePCFilter), test.ShouldBeTrue)
	test.That(t, tail.Includes(StageMeshGen), test.ShouldBeTrue)

	only, err := NewStageRange("stereo", "stereo")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, only.Includes(StageStereo), test.ShouldBeTrue)
	test.That(t, only.Includes(StagePCFilter), test.ShouldBeFalse)

	_, err = NewStageRange("mesh_gen", "stereo")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "comes after")

	_, err = NewStageRange("warp", "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "first_step")

	_, err = NewStageRange("", "warp")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "last_step")

	test.That(t, full.Includes(Stage("bogus")), test.ShouldBeFalse)
}
