package i18n

var ptBRCatalog = &Catalog{
	locale: "pt-BR",
	messages: map[Code]string{
		CodeRequestInvalid: "Não foi possível decodificar o corpo da requisição",

		// Alignment errors
		CodeAlignmentEmptyID:                 "O ID do alinhamento é obrigatório",
		CodeAlignmentEmptyTemplateID:         "O ID do modelo é obrigatório",
		CodeAlignmentInvalidStatus:           "Status de alinhamento inválido",
		CodeAlignmentInvalidStatusTransition: "Não é possível transicionar o alinhamento de {{.FromStatus}} para {{.ToStatus}}",
		CodeAlignmentStatusDisallowsOp:       "O status {{.Status}} não permite {{.Operation}}",
		CodeAlignmentRoundMismatch:           "A rodada {{.Round}} não é a rodada atual {{.CurrentRound}}",
		CodeAlignmentRoundFrozen:             "A rodada {{.Round}} está congelada porque uma assinatura foi registrada",
		CodeAlignmentRoundCapReached:         "Alinhamento paralisado após {{.MaxRounds}} rodadas sem acordo",
		CodeAlignmentTooManyParticipants:     "O alinhamento tem mais de dois participantes com envio",

		// Participant errors
		CodeParticipantEmptyUserID:      "O ID do usuário é obrigatório",
		CodeParticipantEmptyDisplayName: "O nome de exibição não pode ficar vazio",
		CodeParticipantInvalidRole:      "Papel de participante inválido",
		CodeParticipantNotEnrolled:      "Quem chamou não participa deste alinhamento",

		// Response/answer errors
		CodeRoundInvalid:             "A rodada deve ser um número positivo",
		CodeAnswerUnknownQuestion:    "A pergunta {{.QuestionID}} não faz parte deste modelo",
		CodeAnswerInvalidKind:        "A resposta da pergunta {{.QuestionID}} tem tipo {{.Kind}}, esperado {{.Expected}}",
		CodeAnswerInvalidValue:       "A resposta da pergunta {{.QuestionID}} é inválida",
		CodeAnswerMissingRequired:    "A pergunta {{.QuestionID}} exige resposta",
		CodeResponseAlreadySubmitted: "A resposta da rodada {{.Round}} já foi enviada",
		CodeSubmissionBarrierOpen:    "Os dois participantes precisam enviar antes da análise",

		// Analysis errors
		CodeAnalysisAlreadyExists:       "A análise da rodada {{.Round}} já existe",
		CodeAnalysisConflictsUnresolved: "A análise da rodada {{.Round}} ainda tem conflitos não resolvidos",

		// Resolution errors
		CodeResolutionUnknownConflict:   "O conflito {{.ConflictID}} não faz parte da análise atual",
		CodeResolutionMissingConflict:   "O conflito {{.ConflictID}} está sem resolução",
		CodeResolutionDuplicateConflict: "O conflito {{.ConflictID}} tem mais de uma resolução",
		CodeResolutionInvalidType:       "Tipo de resolução inválido {{.Type}}",
		CodeResolutionEmptyCustomText:   "A resolução personalizada do conflito {{.ConflictID}} exige texto",

		// Signature errors
		CodeSignatureConsentRequired: "É necessário consentimento explícito para assinar",
		CodeSignatureAlreadyExists:   "Já existe uma assinatura para esta rodada",
		CodeSignatureHashMismatch:    "O conteúdo mudou desde a primeira assinatura; assinatura cancelada",

		// Invite errors
		CodeInviteEmptyToken:  "O token do convite é obrigatório",
		CodeInviteNotFound:    "Convite não encontrado",
		CodeInviteExpired:     "O convite expirou",
		CodeInviteInvalidated: "O convite foi invalidado",
		CodeInviteExhausted:   "O convite não tem usos restantes",

		// Access grant errors
		CodeUnauthenticated:  "Autenticação obrigatória",
		CodePermissionDenied: "Não há permissão para executar esta operação",
		CodeGrantInvalid:     "Credencial de acesso inválida",
		CodeGrantExpired:     "Credencial de acesso expirada",

		// List errors
		CodeListFilterInvalid:    "Filtro de listagem inválido",
		CodeListPageTokenInvalid: "Token de página inválido",

		// Reasoning engine errors
		CodeEngineUnavailable:     "O motor de análise está indisponível; tente novamente em instantes",
		CodeEngineTimeout:         "O motor de análise não respondeu a tempo",
		CodeEngineMalformedOutput: "O motor de análise retornou um resultado inutilizável",

		// Storage errors
		CodeNotFound:       "O recurso solicitado não foi encontrado",
		CodeConflict:       "A gravação conflita com um registro existente",
		CodeStorageFailure: "Uma falha de armazenamento interrompeu a operação",
	},
}
