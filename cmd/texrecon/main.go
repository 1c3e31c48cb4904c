// Package main contains a command that textures a reconstructed mesh with a
// rig sensor's images via the external texturing tool.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"go.viam.com/stereomesh/texture"
)

var logger = golog.NewDevelopmentLogger("texrecon")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	RigConfig          string `flag:"rig_config,usage=rig configuration file"`
	RigSensor          string `flag:"rig_sensor,usage=rig sensor whose images to texture with"`
	ImageList          string `flag:"image_list,usage=list of images and camera poses"`
	Mesh               string `flag:"mesh,usage=the mesh to texture in .ply format"`
	OutDir             string `flag:"out_dir,usage=directory for the textured mesh and other data"`
	UndistortedCropWin string `flag:"undistorted_crop_win,usage=central image region to keep after undistortion"`
	ToolsDir           string `flag:"tools_dir,usage=directory holding the external tool binaries"`
	DryRun             bool   `flag:"dry_run,usage=log the tool command lines without running them"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	_, err := texture.Run(ctx, texture.Params{
		RigConfig:          argsParsed.RigConfig,
		RigSensor:          argsParsed.RigSensor,
		ImageList:          argsParsed.ImageList,
		Mesh:               argsParsed.Mesh,
		OutDir:             argsParsed.OutDir,
		UndistortedCropWin: argsParsed.UndistortedCropWin,
		ToolsDir:           argsParsed.ToolsDir,
		DryRun:             argsParsed.DryRun,
	}, logger)
	return err
}
