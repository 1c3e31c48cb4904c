// Package main contains a command that reconstructs a mesh from a sequence
// of a rig sensor's images: pairwise dense stereo, point cloud filtering,
// and volumetric fusion, all driven through external tools.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"go.viam.com/stereomesh/pipeline"
)

var logger = golog.NewDevelopmentLogger("multistereo")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	RigConfig          string `flag:"rig_config,usage=rig configuration file"`
	RigSensor          string `flag:"rig_sensor,usage=rig sensor whose images to reconstruct"`
	CameraPoses        string `flag:"camera_poses,usage=list of images and camera poses"`
	OutDir             string `flag:"out_dir,usage=directory for all outputs"`
	ToolsDir           string `flag:"tools_dir,usage=directory holding the external tool binaries"`
	StereoOptions      string `flag:"stereo_options,usage=extra options for the stereo tool"`
	PCFilterOptions    string `flag:"pc_filter_options,usage=extra options for the point cloud filter"`
	MeshGenOptions     string `flag:"mesh_gen_options,usage=extra options for mesh fusion"`
	UndistortedCropWin string `flag:"undistorted_crop_win,usage=central image region to keep after undistortion"`
	FirstStep          string `flag:"first_step,usage=first stage to run: stereo pc_filter or mesh_gen"`
	LastStep           string `flag:"last_step,usage=last stage to run: stereo pc_filter or mesh_gen"`
	FirstImageIndex    int    `flag:"first-image-index,default=-1,usage=first image index to use"`
	LastImageIndex     int    `flag:"last-image-index,default=-1,usage=last image index to use"`
	PairMesh           bool   `flag:"pair_mesh,usage=also write a per-pair debug mesh from each filtered cloud"`
	DryRun             bool   `flag:"dry_run,usage=log the tool command lines without running them"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	driver, err := pipeline.NewDriver(pipeline.Config{
		RigConfig:          argsParsed.RigConfig,
		RigSensor:          argsParsed.RigSensor,
		CameraPoses:        argsParsed.CameraPoses,
		OutDir:             argsParsed.OutDir,
		ToolsDir:           argsParsed.ToolsDir,
		StereoOptions:      argsParsed.StereoOptions,
		PCFilterOptions:    argsParsed.PCFilterOptions,
		MeshGenOptions:     argsParsed.MeshGenOptions,
		UndistortedCropWin: argsParsed.UndistortedCropWin,
		FirstStep:          argsParsed.FirstStep,
		LastStep:           argsParsed.LastStep,
		FirstImageIndex:    argsParsed.FirstImageIndex,
		LastImageIndex:     argsParsed.LastImageIndex,
		PairMesh:           argsParsed.PairMesh,
		DryRun:             argsParsed.DryRun,
	}, logger)
	if err != nil {
		return err
	}
	return driver.Run(ctx)
}
