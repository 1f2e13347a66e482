package domain

import "errors"

var (
	ErrPipelineNotFound   = errors.New("pipeline not found")
	ErrStageNotFound      = errors.New("stage not found")
	ErrNotPipelineOwner   = errors.New("pipeline belongs to another user")
	ErrNotStageOwner      = errors.New("stage belongs to another user")
	ErrInvalidName        = errors.New("invalid pipeline name")
	ErrDeleteDefault      = errors.New("default pipeline cannot be deleted")
	ErrDeleteOnly         = errors.New("the only pipeline cannot be deleted")
	ErrDeleteLastStage    = errors.New("the last stage of a pipeline cannot be deleted")
	ErrUnsetDefault       = errors.New("default flag cannot be cleared directly")
	ErrStageSetMismatch   = errors.New("reorder must list every stage of the pipeline exactly once")
	ErrStageNotInPipeline = errors.New("stage does not belong to the target pipeline")
)
