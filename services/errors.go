package services

import "errors"

// ErrAssetNotFound indica um ID de ativo ausente do diretório em memória.
var ErrAssetNotFound = errors.New("ativo não encontrado")
